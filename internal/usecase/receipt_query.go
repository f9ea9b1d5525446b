package usecase

import (
	"context"
	"errors"

	"zkack/internal/domain"
)

type ReceiptQuery struct {
	Ledger ReceiptLedger
}

func (uc *ReceiptQuery) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	if uc.Ledger == nil {
		return nil, errors.New("receipt ledger is not configured")
	}
	return uc.Ledger.ListAll(ctx)
}

func (uc *ReceiptQuery) Search(ctx context.Context, query domain.ReceiptQuery) ([]domain.Receipt, error) {
	if uc.Ledger == nil {
		return nil, errors.New("receipt ledger is not configured")
	}
	if query.Limit != nil && *query.Limit < 0 {
		return nil, domain.ErrMalformedQuery
	}
	return uc.Ledger.Search(ctx, query)
}

func (uc *ReceiptQuery) Count(ctx context.Context) (int, error) {
	if uc.Ledger == nil {
		return 0, errors.New("receipt ledger is not configured")
	}
	return uc.Ledger.Count(ctx)
}
