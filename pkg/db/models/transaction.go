package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

// Transaction is one immutable row in the append-only ledger. Rows are never
// updated or deleted; a correction is a new offsetting row. BalanceBefore and
// BalanceAfter are set only for party-affecting types. Payload carries the
// type-specific fields (sale line items, buy-back weight/price, stock delta)
// and is built exclusively by the ledger entry constructors.
type Transaction struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Type          enums.TransactionType `gorm:"column:type;type:text;not null;index"`
	PartyID       *uuid.UUID            `gorm:"column:party_id;type:uuid;index"`
	BatchID       *uuid.UUID            `gorm:"column:batch_id;type:uuid;index"`
	ProductID     *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceBefore *decimal.Decimal      `gorm:"column:balance_before;type:numeric(14,2)"`
	BalanceAfter  *decimal.Decimal      `gorm:"column:balance_after;type:numeric(14,2)"`
	Notes         *string               `gorm:"column:notes"`
	Payload       json.RawMessage       `gorm:"column:payload;type:jsonb"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
