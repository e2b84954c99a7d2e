package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

// Sale records one settled sale. PartyID is nil for walk-in cash sales;
// BatchID is the party's active batch at settlement time when one existed.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PartyID       *uuid.UUID          `gorm:"column:party_id;type:uuid;index"`
	BatchID       *uuid.UUID          `gorm:"column:batch_id;type:uuid;index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Wholesale     bool                `gorm:"column:wholesale;not null;default:false"`
	Notes         *string             `gorm:"column:notes"`
	Items         []SaleLineItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// SaleLineItem snapshots one sold item. UnitPrice is captured at sale time
// and never follows later catalog price changes. ProductID is nil for the
// free-form items on wholesale sales.
type SaleLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
