package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

// Party is a customer or wholesale buyer carrying a running balance.
// Negative balance means the party owes the business; positive means the
// business owes the party. The balance column is written only by ledger
// operations, always through a compare-and-swap update.
type Party struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Kind      enums.PartyKind `gorm:"column:kind;type:text;not null"`
	Name      string          `gorm:"column:name;not null"`
	Phone     *string         `gorm:"column:phone"`
	Address   *string         `gorm:"column:address"`
	Notes     *string         `gorm:"column:notes"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
