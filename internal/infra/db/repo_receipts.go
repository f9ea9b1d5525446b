package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zkack/internal/domain"
)

type ReceiptRepository struct {
	db    *gorm.DB
	newID func() string
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db, newID: uuid.NewString}
}

func (r *ReceiptRepository) Append(ctx context.Context, receipt domain.Receipt) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	receipt.AckID = r.newID()
	model, err := receiptModelFromDomain(receipt)
	if err != nil {
		return "", err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("insert receipt: %w", err)
	}
	return receipt.AckID, nil
}

func (r *ReceiptRepository) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	return r.list(ctx, "")
}

// Search narrows by kid in SQL and applies since, ordering and limit with the
// shared query semantics.
func (r *ReceiptRepository) Search(ctx context.Context, query domain.ReceiptQuery) ([]domain.Receipt, error) {
	receipts, err := r.list(ctx, query.KID)
	if err != nil {
		return nil, err
	}
	return query.Apply(receipts), nil
}

func (r *ReceiptRepository) Count(ctx context.Context) (int, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&ReceiptModel{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *ReceiptRepository) list(ctx context.Context, kid string) ([]domain.Receipt, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&ReceiptModel{}).Order("id asc")
	if kid != "" {
		q = q.Where("kid = ?", kid)
	}
	var models []ReceiptModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, 0, len(models))
	for _, m := range models {
		receipt, ok := receiptFromModel(m)
		if !ok {
			continue
		}
		out = append(out, receipt)
	}
	return out, nil
}

func receiptModelFromDomain(receipt domain.Receipt) (ReceiptModel, error) {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return ReceiptModel{}, err
	}
	model := ReceiptModel{
		AckID:       receipt.AckID,
		KID:         receipt.KID,
		ReceiptJSON: payload,
		CreatedAt:   time.Now().UTC(),
	}
	if storedAt, ok := receipt.StoredTime(); ok {
		utc := storedAt.UTC()
		model.StoredAt = &utc
	}
	return model, nil
}

func receiptFromModel(m ReceiptModel) (domain.Receipt, bool) {
	var receipt domain.Receipt
	if err := json.Unmarshal(m.ReceiptJSON, &receipt); err != nil {
		return domain.Receipt{}, false
	}
	receipt.AckID = m.AckID
	return receipt, true
}
