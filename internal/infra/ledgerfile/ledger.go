package ledgerfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"zkack/internal/domain"
)

const maxRecordSize = 4 << 20

var (
	ErrRecordTooLarge = errors.New("receipt record too large")
	ErrLedgerBroken   = errors.New("ledger has an unterminated record; reopen it")
)

type appendFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Close() error
}

// Ledger is an append-only JSON Lines file. Every Append is fsynced before it
// returns; a record that could not be synced is cut off again. If the cut
// fails the ledger refuses further appends until it is reopened.
type Ledger struct {
	mu     sync.Mutex
	path   string
	file   appendFile
	broken error
	newID  func() string
}

func Open(path string) (*Ledger, error) {
	return OpenWithIDs(path, uuid.NewString)
}

func OpenWithIDs(path string, newID func() string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := terminateTornRecord(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Ledger{path: path, file: f, newID: newID}, nil
}

// terminateTornRecord ends a half-written last line so the next record starts
// on its own line. The torn line itself stays and is skipped by readers.
func terminateTornRecord(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("read ledger tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte("\n")); err != nil {
		return err
	}
	return f.Sync()
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Ledger) Append(ctx context.Context, receipt domain.Receipt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	receipt.AckID = l.newID()
	line, err := json.Marshal(receipt)
	if err != nil {
		return "", err
	}
	if len(line) > maxRecordSize {
		return "", fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(line))
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return "", os.ErrClosed
	}
	if l.broken != nil {
		return "", l.broken
	}
	info, err := l.file.Stat()
	if err != nil {
		return "", err
	}
	if _, err := l.file.Write(line); err != nil {
		l.rollback(info.Size())
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		l.rollback(info.Size())
		return "", fmt.Errorf("sync receipt: %w", err)
	}
	return receipt.AckID, nil
}

func (l *Ledger) rollback(size int64) {
	if err := l.file.Truncate(size); err != nil {
		l.broken = fmt.Errorf("%w: %v", ErrLedgerBroken, err)
	}
}

func (l *Ledger) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(l.path)
}

func (l *Ledger) Search(ctx context.Context, query domain.ReceiptQuery) ([]domain.Receipt, error) {
	all, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(all), nil
}

func (l *Ledger) Count(ctx context.Context) (int, error) {
	all, err := l.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// ReadFile scans a ledger file in storage order without opening it for
// writing. Lines that do not decode to a receipt with an ack_id are skipped.
func ReadFile(path string) ([]domain.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Receipt{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return decodeRecords(f)
}

// decodeRecords reads line by line. Lines longer than maxRecordSize are
// discarded up to their newline rather than failing the whole scan.
func decodeRecords(r io.Reader) ([]domain.Receipt, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	out := []domain.Receipt{}
	var line []byte
	oversize := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversize {
			if len(line)+len(chunk) > maxRecordSize+1 {
				oversize = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		if !oversize {
			if receipt, ok := decodeRecord(line); ok {
				out = append(out, receipt)
			}
		}
		line = line[:0]
		oversize = false
		if err != nil {
			return out, nil
		}
	}
}

func decodeRecord(line []byte) (domain.Receipt, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return domain.Receipt{}, false
	}
	var receipt domain.Receipt
	if err := json.Unmarshal(line, &receipt); err != nil || receipt.AckID == "" {
		return domain.Receipt{}, false
	}
	return receipt, true
}
