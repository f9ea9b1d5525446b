package ledgermem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"zkack/internal/domain"
)

func receiptAt(kid string, storedAt time.Time) domain.Receipt {
	return domain.Receipt{
		KID:        kid,
		ReceivedTS: storedAt.Format(time.RFC3339),
		RecvDomain: "mx.example.com",
		DKIMPass:   true,
		StoredAt:   storedAt.UTC().Format(time.RFC3339Nano),
	}
}

func TestLedgerAppendAssignsIDs(t *testing.T) {
	ledger := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	idA, err := ledger.Append(ctx, receiptAt("k1", base))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	idB, err := ledger.Append(ctx, domain.Receipt{AckID: "client-chosen", KID: "k1", StoredAt: base.Format(time.RFC3339)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if idA == "" || idA == idB || idB == "client-chosen" {
		t.Fatalf("unexpected ids %q %q", idA, idB)
	}
	got, err := ledger.Get(ctx, idB)
	if err != nil || got.AckID != idB {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := ledger.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLedgerListAllStorageOrder(t *testing.T) {
	ledger := New()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 3; i > 0; i-- {
		id, err := ledger.Append(ctx, receiptAt("k", base.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}
	all, err := ledger.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, r := range all {
		if r.AckID != ids[i] {
			t.Fatalf("position %d: got %s want %s", i, r.AckID, ids[i])
		}
	}
}

func TestLedgerSearchSinceAndLimit(t *testing.T) {
	ledger := New()
	ctx := context.Background()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	ids := map[time.Time]string{}
	for _, ts := range []time.Time{t2, t1, t3} {
		id, err := ledger.Append(ctx, receiptAt("k", ts))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids[ts] = id
	}

	got, err := ledger.Search(ctx, domain.ReceiptQuery{Since: &t2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].AckID != ids[t3] || got[1].AckID != ids[t2] {
		t.Fatalf("unexpected since result %+v", got)
	}

	limit := 1
	got, err = ledger.Search(ctx, domain.ReceiptQuery{Limit: &limit})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].AckID != ids[t3] {
		t.Fatalf("unexpected limit result %+v", got)
	}
}

func TestLedgerConcurrentAppend(t *testing.T) {
	ledger := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := ledger.Append(ctx, receiptAt(fmt.Sprintf("k%d", i%3), time.Now())); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()
	n, err := ledger.Count(ctx)
	if err != nil || n != 50 {
		t.Fatalf("count: %d %v", n, err)
	}
}

func TestLedgerRejectsDuplicateIDs(t *testing.T) {
	ledger := NewWithIDs(func() string { return "same" })
	ctx := context.Background()
	if _, err := ledger.Append(ctx, receiptAt("k", time.Now())); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, err := ledger.Append(ctx, receiptAt("k", time.Now())); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
