package enums

import "fmt"

// TransactionType is the discriminator for ledger transaction rows. Stored
// as text with a check constraint rather than a native Postgres enum so the
// sqlite dev database accepts the same schema.
type TransactionType string

const (
	TransactionTypeSale            TransactionType = "SALE"
	TransactionTypeDeposit         TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal      TransactionType = "WITHDRAWAL"
	TransactionTypeStockAdd        TransactionType = "STOCK_ADD"
	TransactionTypeStockRemove     TransactionType = "STOCK_REMOVE"
	TransactionTypeBuyBack         TransactionType = "BUY_BACK"
	TransactionTypeWholesaleSale   TransactionType = "WHOLESALE_SALE"
	TransactionTypeDiscount        TransactionType = "DISCOUNT"
	TransactionTypeDiscountRemoval TransactionType = "DISCOUNT_REMOVAL"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSale,
	TransactionTypeDeposit,
	TransactionTypeWithdrawal,
	TransactionTypeStockAdd,
	TransactionTypeStockRemove,
	TransactionTypeBuyBack,
	TransactionTypeWholesaleSale,
	TransactionTypeDiscount,
	TransactionTypeDiscountRemoval,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// AffectsBalance reports whether entries of this type carry party balance
// snapshots. Stock adjustments touch inventory only.
func (t TransactionType) AffectsBalance() bool {
	switch t {
	case TransactionTypeStockAdd, TransactionTypeStockRemove:
		return false
	default:
		return true
	}
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
