package ledger

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
)

func snapshot(before, after string) BalanceSnapshot {
	return BalanceSnapshot{
		Before: decimal.RequireFromString(before),
		After:  decimal.RequireFromString(after),
	}
}

func TestNewSaleEntryCreditRequiresPartyAndSnapshot(t *testing.T) {
	items := []SaleItemSnapshot{{
		Name:      "Starter Feed",
		UnitPrice: decimal.RequireFromString("20"),
		Quantity:  2,
		Total:     decimal.RequireFromString("40"),
	}}

	if _, err := NewSaleEntry(SaleEntryInput{
		SaleID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCredit,
		Total:         decimal.RequireFromString("40"),
		Items:         items,
	}); err == nil {
		t.Fatal("expected credit sale without party to fail")
	}

	partyID := uuid.New()
	if _, err := NewSaleEntry(SaleEntryInput{
		SaleID:        uuid.New(),
		PartyID:       &partyID,
		PaymentMethod: enums.PaymentMethodCredit,
		Total:         decimal.RequireFromString("40"),
		Items:         items,
	}); err == nil {
		t.Fatal("expected party sale without snapshot to fail")
	}

	snap := snapshot("100", "60")
	entry, err := NewSaleEntry(SaleEntryInput{
		SaleID:        uuid.New(),
		PartyID:       &partyID,
		PaymentMethod: enums.PaymentMethodCredit,
		Total:         decimal.RequireFromString("40"),
		Items:         items,
		Snapshot:      &snap,
	})
	if err != nil {
		t.Fatalf("sale entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeSale {
		t.Fatalf("expected SALE type, got %s", entry.Type)
	}
	if entry.BalanceBefore == nil || !entry.BalanceBefore.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected balance before: %v", entry.BalanceBefore)
	}
	if entry.BalanceAfter == nil || !entry.BalanceAfter.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("unexpected balance after: %v", entry.BalanceAfter)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("unexpected amount: %s", entry.Amount)
	}

	var payload struct {
		Items []SaleItemSnapshot `json:"items"`
	}
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Name != "Starter Feed" {
		t.Fatalf("unexpected payload items: %+v", payload.Items)
	}
}

func TestNewSaleEntryWalkInCashHasNoSnapshot(t *testing.T) {
	entry, err := NewSaleEntry(SaleEntryInput{
		SaleID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		Total:         decimal.RequireFromString("15"),
		Items: []SaleItemSnapshot{{
			Name:      "Grower Feed",
			UnitPrice: decimal.RequireFromString("15"),
			Quantity:  1,
			Total:     decimal.RequireFromString("15"),
		}},
	})
	if err != nil {
		t.Fatalf("walk-in sale entry: %v", err)
	}
	if entry.PartyID != nil {
		t.Fatal("walk-in entry should not reference a party")
	}
	if entry.BalanceBefore != nil || entry.BalanceAfter != nil {
		t.Fatal("walk-in entry should carry no snapshot")
	}
}

func TestNewSaleEntryWholesaleType(t *testing.T) {
	partyID := uuid.New()
	snap := snapshot("0", "-75")
	entry, err := NewSaleEntry(SaleEntryInput{
		SaleID:        uuid.New(),
		PartyID:       &partyID,
		PaymentMethod: enums.PaymentMethodCredit,
		Total:         decimal.RequireFromString("75"),
		Items: []SaleItemSnapshot{{
			Name:      "Bulk Bran",
			UnitPrice: decimal.RequireFromString("75"),
			Quantity:  1,
			Total:     decimal.RequireFromString("75"),
		}},
		Snapshot:  &snap,
		Wholesale: true,
	})
	if err != nil {
		t.Fatalf("wholesale entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeWholesaleSale {
		t.Fatalf("expected WHOLESALE_SALE type, got %s", entry.Type)
	}
}

func TestNewBuyBackEntryValidatesTotal(t *testing.T) {
	base := BuyBackEntryInput{
		PartyID:    uuid.New(),
		BatchID:    uuid.New(),
		Quantity:   3,
		Weight:     decimal.RequireFromString("12.5"),
		PricePerKg: decimal.RequireFromString("4"),
		Total:      decimal.RequireFromString("50"),
		Snapshot:   snapshot("-20", "30"),
	}

	entry, err := NewBuyBackEntry(base)
	if err != nil {
		t.Fatalf("buy-back entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeBuyBack {
		t.Fatalf("expected BUY_BACK type, got %s", entry.Type)
	}

	mismatched := base
	mismatched.Total = decimal.RequireFromString("51")
	if _, err := NewBuyBackEntry(mismatched); err == nil {
		t.Fatal("expected total mismatch error")
	}

	zeroWeight := base
	zeroWeight.Weight = decimal.Zero
	if _, err := NewBuyBackEntry(zeroWeight); err == nil {
		t.Fatal("expected zero weight error")
	}
}

func TestBalanceEntriesRejectNonPositiveAmounts(t *testing.T) {
	partyID := uuid.New()
	snap := snapshot("10", "10")

	if _, err := NewDepositEntry(partyID, decimal.Zero, snap, nil); err == nil {
		t.Fatal("expected zero deposit error")
	}
	if _, err := NewWithdrawalEntry(partyID, decimal.RequireFromString("-5"), snap, nil); err == nil {
		t.Fatal("expected negative withdrawal error")
	}

	entry, err := NewDepositEntry(partyID, decimal.RequireFromString("25"), snapshot("10", "35"), nil)
	if err != nil {
		t.Fatalf("deposit entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeDeposit {
		t.Fatalf("expected DEPOSIT type, got %s", entry.Type)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("deposit must store the positive amount, got %s", entry.Amount)
	}
}

func TestWithdrawalEntryStoresNegatedAmount(t *testing.T) {
	entry, err := NewWithdrawalEntry(uuid.New(), decimal.RequireFromString("25"), snapshot("60", "35"), nil)
	if err != nil {
		t.Fatalf("withdrawal entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeWithdrawal {
		t.Fatalf("expected WITHDRAWAL type, got %s", entry.Type)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("-25")) {
		t.Fatalf("withdrawal must store the negated amount, got %s", entry.Amount)
	}
}

func TestStockEntriesCarryNoSnapshot(t *testing.T) {
	entry, err := NewStockAddEntry(uuid.New(), 10, decimal.RequireFromString("8"), nil)
	if err != nil {
		t.Fatalf("stock add entry: %v", err)
	}
	if entry.BalanceBefore != nil || entry.BalanceAfter != nil {
		t.Fatal("stock entry should carry no balance snapshot")
	}
	if !entry.Amount.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("unexpected stock amount: %s", entry.Amount)
	}

	var payload struct {
		Delta int `json:"delta"`
	}
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Delta != 10 {
		t.Fatalf("unexpected delta: %d", payload.Delta)
	}

	removal, err := NewStockRemoveEntry(uuid.New(), 4, decimal.RequireFromString("8"), nil)
	if err != nil {
		t.Fatalf("stock remove entry: %v", err)
	}
	if err := json.Unmarshal(removal.Payload, &payload); err != nil {
		t.Fatalf("unmarshal removal payload: %v", err)
	}
	if payload.Delta != -4 {
		t.Fatalf("expected negative delta, got %d", payload.Delta)
	}
}

func TestNewDiscountEntryRemovalNegatesAmount(t *testing.T) {
	input := DiscountEntryInput{
		PartyID:     uuid.New(),
		BatchID:     uuid.New(),
		DiscountID:  uuid.New(),
		Description: "loyalty",
		Amount:      decimal.RequireFromString("30"),
		Snapshot:    snapshot("0", "30"),
	}

	applied, err := NewDiscountEntry(input)
	if err != nil {
		t.Fatalf("discount entry: %v", err)
	}
	if applied.Type != enums.TransactionTypeDiscount {
		t.Fatalf("expected DISCOUNT type, got %s", applied.Type)
	}
	if !applied.Amount.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected amount: %s", applied.Amount)
	}

	input.Removal = true
	input.Snapshot = snapshot("30", "0")
	removed, err := NewDiscountEntry(input)
	if err != nil {
		t.Fatalf("discount removal entry: %v", err)
	}
	if removed.Type != enums.TransactionTypeDiscountRemoval {
		t.Fatalf("expected DISCOUNT_REMOVAL type, got %s", removed.Type)
	}
	if !removed.Amount.Equal(decimal.RequireFromString("-30")) {
		t.Fatalf("expected negated amount, got %s", removed.Amount)
	}
}
