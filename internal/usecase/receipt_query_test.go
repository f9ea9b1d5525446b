package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"zkack/internal/domain"
	"zkack/internal/infra/ledgermem"
)

func seedLedger(t *testing.T) (*ledgermem.Ledger, []string) {
	t.Helper()
	ledger := ledgermem.New()
	var ids []string
	for i, kid := range []string{"k1", "k2", "k1"} {
		id, err := ledger.Append(context.Background(), domain.Receipt{
			KID:      kid,
			StoredAt: testNow.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}
	return ledger, ids
}

func TestReceiptQuery_SinceAndLimit(t *testing.T) {
	ledger, ids := seedLedger(t)
	uc := &ReceiptQuery{Ledger: ledger}

	since := testNow.Add(time.Minute)
	got, err := uc.Search(context.Background(), domain.ReceiptQuery{Since: &since})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].AckID != ids[2] || got[1].AckID != ids[1] {
		t.Fatalf("unexpected since result %+v", got)
	}

	limit := 1
	got, err = uc.Search(context.Background(), domain.ReceiptQuery{Limit: &limit})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].AckID != ids[2] {
		t.Fatalf("limit must keep the newest, got %+v", got)
	}
}

func TestReceiptQuery_NegativeLimit(t *testing.T) {
	ledger, _ := seedLedger(t)
	uc := &ReceiptQuery{Ledger: ledger}
	limit := -1
	if _, err := uc.Search(context.Background(), domain.ReceiptQuery{Limit: &limit}); !errors.Is(err, domain.ErrMalformedQuery) {
		t.Fatalf("expected malformed query, got %v", err)
	}
}

func TestReceiptQuery_ListAllAndCount(t *testing.T) {
	ledger, ids := seedLedger(t)
	uc := &ReceiptQuery{Ledger: ledger}

	all, err := uc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].AckID != ids[0] {
		t.Fatalf("list must keep storage order, got %+v", all)
	}
	n, err := uc.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("count: %d %v", n, err)
	}
}

func TestReceiptQuery_NoLedger(t *testing.T) {
	uc := &ReceiptQuery{}
	if _, err := uc.ListAll(context.Background()); err == nil {
		t.Fatal("expected error without a ledger")
	}
}
