package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

// Batch is one feed cycle for a party. Numbering is derived from the party's
// own latest batch, so deleting unrelated rows never renumbers a cycle.
type Batch struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	PartyID         uuid.UUID         `gorm:"column:party_id;type:uuid;not null;uniqueIndex:ux_batches_party_number,priority:1"`
	BatchNumber     int               `gorm:"column:batch_number;not null;uniqueIndex:ux_batches_party_number,priority:2"`
	Status          enums.BatchStatus `gorm:"column:status;type:text;not null;default:'active'"`
	StartDate       time.Time         `gorm:"column:start_date;not null"`
	EndDate         *time.Time        `gorm:"column:end_date"`
	StartingBalance decimal.Decimal   `gorm:"column:starting_balance;type:numeric(14,2);not null"`
	EndingBalance   *decimal.Decimal  `gorm:"column:ending_balance;type:numeric(14,2)"`
	Discounts       []BatchDiscount   `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BatchDiscount is one adjustment applied to an open batch. Rows are only
// ever added or removed while the owning batch is active.
type BatchDiscount struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BatchID     uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;index"`
	Description string          `gorm:"column:description;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
