package ledger

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
)

// Transaction rows are only ever assembled through the constructors in this
// file. Each constructor validates the fields its type requires and serializes
// the type-specific payload, so a row that reaches the repository is always
// internally consistent.

// SaleItemSnapshot is the per-item detail frozen into a sale entry's payload.
type SaleItemSnapshot struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type salePayload struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Items         []SaleItemSnapshot  `json:"items"`
}

type buyBackPayload struct {
	Quantity      int             `json:"quantity"`
	Weight        decimal.Decimal `json:"weight"`
	PricePerKg    decimal.Decimal `json:"price_per_kg"`
	ReferenceName *string         `json:"reference_name,omitempty"`
}

type stockPayload struct {
	Delta int `json:"delta"`
}

type discountPayload struct {
	DiscountID  uuid.UUID `json:"discount_id"`
	Description string    `json:"description"`
}

// BalanceSnapshot carries the before/after party balance of a settling
// operation. Both values come from inside the same transaction that applied
// the balance change.
type BalanceSnapshot struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// SaleEntryInput builds a SALE or WHOLESALE_SALE entry.
type SaleEntryInput struct {
	SaleID        uuid.UUID
	PartyID       *uuid.UUID
	BatchID       *uuid.UUID
	PaymentMethod enums.PaymentMethod
	Total         decimal.Decimal
	Items         []SaleItemSnapshot
	Snapshot      *BalanceSnapshot
	Notes         *string
	Wholesale     bool
}

// NewSaleEntry freezes a settled sale into a ledger row. Cash sales to a
// walk-in have no party and no snapshot; credit sales require both.
func NewSaleEntry(input SaleEntryInput) (*models.Transaction, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale entry requires at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Total.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale total must be positive")
	}
	if input.PaymentMethod == enums.PaymentMethodCredit && input.PartyID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit sale requires a party")
	}
	if input.PartyID != nil && input.Snapshot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party sale requires balance snapshot")
	}

	entryType := enums.TransactionTypeSale
	if input.Wholesale {
		entryType = enums.TransactionTypeWholesaleSale
	}

	payload, err := json.Marshal(salePayload{
		SaleID:        input.SaleID,
		PaymentMethod: input.PaymentMethod,
		Items:         input.Items,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal sale payload")
	}

	entry := &models.Transaction{
		ID:      uuid.New(),
		Type:    entryType,
		PartyID: input.PartyID,
		BatchID: input.BatchID,
		Amount:  input.Total,
		Notes:   input.Notes,
		Payload: payload,
	}
	applySnapshot(entry, input.Snapshot)
	return entry, nil
}

// BuyBackEntryInput builds a BUY_BACK entry.
type BuyBackEntryInput struct {
	PartyID       uuid.UUID
	BatchID       uuid.UUID
	Quantity      int
	Weight        decimal.Decimal
	PricePerKg    decimal.Decimal
	Total         decimal.Decimal
	ReferenceName *string
	Snapshot      BalanceSnapshot
	Notes         *string
}

// NewBuyBackEntry records the business buying livestock back from a party.
func NewBuyBackEntry(input BuyBackEntryInput) (*models.Transaction, error) {
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Weight.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	if input.PricePerKg.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per kg must be positive")
	}
	if !input.Total.Equal(input.Weight.Mul(input.PricePerKg).Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total does not match weight times price")
	}

	payload, err := json.Marshal(buyBackPayload{
		Quantity:      input.Quantity,
		Weight:        input.Weight,
		PricePerKg:    input.PricePerKg,
		ReferenceName: input.ReferenceName,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal buy-back payload")
	}

	entry := &models.Transaction{
		ID:      uuid.New(),
		Type:    enums.TransactionTypeBuyBack,
		PartyID: &input.PartyID,
		BatchID: &input.BatchID,
		Amount:  input.Total,
		Notes:   input.Notes,
		Payload: payload,
	}
	applySnapshot(entry, &input.Snapshot)
	return entry, nil
}

// NewDepositEntry records money a party paid in.
func NewDepositEntry(partyID uuid.UUID, amount decimal.Decimal, snapshot BalanceSnapshot, notes *string) (*models.Transaction, error) {
	return newBalanceEntry(enums.TransactionTypeDeposit, partyID, amount, snapshot, notes)
}

// NewWithdrawalEntry records money paid out to a party. The row stores the
// negated amount so the withdrawal reads as the debit it is.
func NewWithdrawalEntry(partyID uuid.UUID, amount decimal.Decimal, snapshot BalanceSnapshot, notes *string) (*models.Transaction, error) {
	return newBalanceEntry(enums.TransactionTypeWithdrawal, partyID, amount, snapshot, notes)
}

func newBalanceEntry(entryType enums.TransactionType, partyID uuid.UUID, amount decimal.Decimal, snapshot BalanceSnapshot, notes *string) (*models.Transaction, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	stored := amount
	if entryType == enums.TransactionTypeWithdrawal {
		stored = amount.Neg()
	}

	entry := &models.Transaction{
		ID:      uuid.New(),
		Type:    entryType,
		PartyID: &partyID,
		Amount:  stored,
		Notes:   notes,
	}
	applySnapshot(entry, &snapshot)
	return entry, nil
}

// NewStockAddEntry records stock arriving into inventory. Stock entries touch
// no party balance, so they carry no snapshot.
func NewStockAddEntry(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, notes *string) (*models.Transaction, error) {
	return newStockEntry(enums.TransactionTypeStockAdd, productID, quantity, unitPrice, notes)
}

// NewStockRemoveEntry records stock removed outside of a sale (spoilage, loss).
func NewStockRemoveEntry(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, notes *string) (*models.Transaction, error) {
	return newStockEntry(enums.TransactionTypeStockRemove, productID, quantity, unitPrice, notes)
}

func newStockEntry(entryType enums.TransactionType, productID uuid.UUID, quantity int, unitPrice decimal.Decimal, notes *string) (*models.Transaction, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	delta := quantity
	if entryType == enums.TransactionTypeStockRemove {
		delta = -quantity
	}
	payload, err := json.Marshal(stockPayload{Delta: delta})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal stock payload")
	}

	return &models.Transaction{
		ID:        uuid.New(),
		Type:      entryType,
		ProductID: &productID,
		Amount:    unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
		Notes:     notes,
		Payload:   payload,
	}, nil
}

// DiscountEntryInput builds a DISCOUNT or DISCOUNT_REMOVAL entry.
type DiscountEntryInput struct {
	PartyID     uuid.UUID
	BatchID     uuid.UUID
	DiscountID  uuid.UUID
	Description string
	Amount      decimal.Decimal
	Snapshot    BalanceSnapshot
	Removal     bool
}

// NewDiscountEntry records a discount applied to or removed from an open
// batch. Removals store the negated amount so the row reads as the reversal
// it is.
func NewDiscountEntry(input DiscountEntryInput) (*models.Transaction, error) {
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if input.DiscountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload, err := json.Marshal(discountPayload{
		DiscountID:  input.DiscountID,
		Description: input.Description,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal discount payload")
	}

	entryType := enums.TransactionTypeDiscount
	amount := input.Amount
	if input.Removal {
		entryType = enums.TransactionTypeDiscountRemoval
		amount = input.Amount.Neg()
	}

	entry := &models.Transaction{
		ID:      uuid.New(),
		Type:    entryType,
		PartyID: &input.PartyID,
		BatchID: &input.BatchID,
		Amount:  amount,
		Payload: payload,
	}
	applySnapshot(entry, &input.Snapshot)
	return entry, nil
}

func applySnapshot(entry *models.Transaction, snapshot *BalanceSnapshot) {
	if snapshot == nil {
		return
	}
	before := snapshot.Before
	after := snapshot.After
	entry.BalanceBefore = &before
	entry.BalanceAfter = &after
}
