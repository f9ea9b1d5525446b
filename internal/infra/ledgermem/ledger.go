package ledgermem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"zkack/internal/domain"
)

// Ledger keeps receipts in insertion order in process memory. It is not
// durable and exists for tests and throwaway verifiers.
type Ledger struct {
	mu       sync.RWMutex
	receipts []domain.Receipt
	byID     map[string]int
	newID    func() string
}

func New() *Ledger {
	return NewWithIDs(uuid.NewString)
}

func NewWithIDs(newID func() string) *Ledger {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Ledger{
		byID:  make(map[string]int),
		newID: newID,
	}
}

func (l *Ledger) Append(ctx context.Context, receipt domain.Receipt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.newID()
	if _, dup := l.byID[id]; dup {
		return "", domain.ErrStorage
	}
	receipt.AckID = id
	l.byID[id] = len(l.receipts)
	l.receipts = append(l.receipts, cloneReceipt(receipt))
	return id, nil
}

func (l *Ledger) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Receipt, 0, len(l.receipts))
	for _, r := range l.receipts {
		out = append(out, cloneReceipt(r))
	}
	return out, nil
}

func (l *Ledger) Search(ctx context.Context, query domain.ReceiptQuery) ([]domain.Receipt, error) {
	all, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(all), nil
}

func (l *Ledger) Get(ctx context.Context, ackID string) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[ackID]
	if !ok {
		return domain.Receipt{}, domain.ErrNotFound
	}
	return cloneReceipt(l.receipts[i]), nil
}

func (l *Ledger) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.receipts), nil
}

func cloneReceipt(r domain.Receipt) domain.Receipt {
	r.DAT.Policy.Fallbacks = append([]string(nil), r.DAT.Policy.Fallbacks...)
	if r.RecvDomainSig != nil {
		v := *r.RecvDomainSig
		r.RecvDomainSig = &v
	}
	if r.MsgID != nil {
		v := *r.MsgID
		r.MsgID = &v
	}
	return r
}
