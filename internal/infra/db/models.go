package db

import "time"

// ReceiptModel stores one receipt. ID gives storage order; the full record
// is kept as JSON so optional fields round-trip exactly.
type ReceiptModel struct {
	ID          int64      `gorm:"primaryKey"`
	AckID       string     `gorm:"type:uuid;uniqueIndex;not null"`
	KID         string     `gorm:"index;not null"`
	StoredAt    *time.Time `gorm:"index"`
	ReceiptJSON []byte     `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time  `gorm:"not null"`
}

func (ReceiptModel) TableName() string {
	return "receipts"
}
