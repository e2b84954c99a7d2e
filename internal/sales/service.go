package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/internal/batches"
	"github.com/nayhtetaung/feedledger-backend/internal/inventory"
	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/metrics"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockDecrementer applies a bulk floor-checked stock take inside the sale's
// transaction. Satisfied by the inventory service.
type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, items []inventory.StockDecrement) error
}

// Service settles sales and buy-backs against party balances.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*SaleResult, error)
	WholesaleSale(ctx context.Context, input WholesaleSaleInput) (*SaleResult, error)
	BuyFromParty(ctx context.Context, input BuyBackInput) (*BuyBackResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*SalePage, error)
}

type service struct {
	repo          Repository
	partyRepo     parties.Repository
	batchRepo     batches.Repository
	inventoryRepo inventory.Repository
	stock         stockDecrementer
	ledgerRepo    ledger.Repository
	tx            txRunner
	metrics       *metrics.LedgerMetrics
}

// SaleItemInput references a catalog product by id; the unit price is always
// read from the catalog at settlement time, never taken from the caller.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateSaleInput settles a retail sale. A nil PartyID is a walk-in sale,
// which must be paid in cash.
type CreateSaleInput struct {
	PartyID     *uuid.UUID
	Items       []SaleItemInput
	CashPayment bool
	Notes       *string
}

// FreeFormItemInput is a wholesale line item not tracked in inventory.
type FreeFormItemInput struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// WholesaleSaleInput settles a sale of non-catalog goods to a wholesale buyer.
type WholesaleSaleInput struct {
	PartyID     uuid.UUID
	Items       []FreeFormItemInput
	CashPayment bool
	Notes       *string
}

// BuyBackInput settles the business buying livestock back from a party.
type BuyBackInput struct {
	PartyID       uuid.UUID
	Quantity      int
	Weight        decimal.Decimal
	PricePerKg    decimal.Decimal
	ReferenceName *string
	Notes         *string
}

// SaleResult returns the sale with its snapshot line items, the updated party
// (nil for walk-ins) and the ledger entry written alongside.
type SaleResult struct {
	Sale  *models.Sale
	Party *models.Party
	Entry *models.Transaction
}

// BuyBackResult returns the updated party and the buy-back ledger entry.
type BuyBackResult struct {
	Party *models.Party
	Batch *models.Batch
	Entry *models.Transaction
}

// NewService builds a sales service with the required dependencies.
// Metrics may be nil; recording is a no-op then.
func NewService(
	repo Repository,
	partyRepo parties.Repository,
	batchRepo batches.Repository,
	inventoryRepo inventory.Repository,
	stock stockDecrementer,
	ledgerRepo ledger.Repository,
	tx txRunner,
	m *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if partyRepo == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	if batchRepo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:          repo,
		partyRepo:     partyRepo,
		batchRepo:     batchRepo,
		inventoryRepo: inventoryRepo,
		stock:         stock,
		ledgerRepo:    ledgerRepo,
		tx:            tx,
		metrics:       m,
	}, nil
}

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*SaleResult, error) {
	started := time.Now()
	result, err := s.createSale(ctx, input)
	s.metrics.ObserveDuration("create_sale", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("create_sale")
		}
		s.metrics.IncFailure("create_sale")
		return nil, err
	}
	s.metrics.IncSuccess("create_sale")
	return result, nil
}

func (s *service) createSale(ctx context.Context, input CreateSaleInput) (*SaleResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if input.PartyID == nil && !input.CashPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "walk-in sales are cash only")
	}

	var result SaleResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var party *models.Party
		if input.PartyID != nil {
			loaded, err := s.loadParty(ctx, tx, *input.PartyID)
			if err != nil {
				return err
			}
			party = loaded
		}

		// price capture and stock validation, then the floor-checked
		// decrement which is authoritative under concurrency
		lineItems, decrements, total, err := s.buildCatalogItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		if err := s.stock.Decrement(ctx, tx, decrements); err != nil {
			return err
		}

		return s.settle(ctx, tx, settleInput{
			party:       party,
			lineItems:   lineItems,
			total:       total,
			cashPayment: input.CashPayment,
			notes:       input.Notes,
			wholesale:   false,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) WholesaleSale(ctx context.Context, input WholesaleSaleInput) (*SaleResult, error) {
	started := time.Now()
	result, err := s.wholesaleSale(ctx, input)
	s.metrics.ObserveDuration("wholesale_sale", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("wholesale_sale")
		}
		s.metrics.IncFailure("wholesale_sale")
		return nil, err
	}
	s.metrics.IncSuccess("wholesale_sale")
	return result, nil
}

func (s *service) wholesaleSale(ctx context.Context, input WholesaleSaleInput) (*SaleResult, error) {
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}

	total := decimal.Zero
	lineItems := make([]models.SaleLineItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if item.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item unit price must be positive")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(lineTotal)
		lineItems = append(lineItems, models.SaleLineItem{
			ID:        uuid.New(),
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Total:     lineTotal,
		})
	}

	var result SaleResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.loadParty(ctx, tx, input.PartyID)
		if err != nil {
			return err
		}
		if party.Kind != enums.PartyKindWholesaleBuyer {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "party is not a wholesale buyer")
		}

		return s.settle(ctx, tx, settleInput{
			party:       party,
			lineItems:   lineItems,
			total:       total,
			cashPayment: input.CashPayment,
			notes:       input.Notes,
			wholesale:   true,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) BuyFromParty(ctx context.Context, input BuyBackInput) (*BuyBackResult, error) {
	started := time.Now()
	result, err := s.buyFromParty(ctx, input)
	s.metrics.ObserveDuration("buy_back", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("buy_back")
		}
		s.metrics.IncFailure("buy_back")
		return nil, err
	}
	s.metrics.IncSuccess("buy_back")
	return result, nil
}

func (s *service) buyFromParty(ctx context.Context, input BuyBackInput) (*BuyBackResult, error) {
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
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
	total := input.Weight.Mul(input.PricePerKg).Round(2)
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be positive")
	}

	var result BuyBackResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.loadParty(ctx, tx, input.PartyID)
		if err != nil {
			return err
		}

		batch, err := s.batchRepo.WithTx(tx).FindActiveByParty(ctx, party.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "buy-back requires an active batch")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active batch")
		}

		before := party.Balance
		after := before.Add(total)
		ok, err := s.partyRepo.WithTx(tx).UpdateBalanceCAS(ctx, party.ID, before, after)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently, retry")
		}

		entry, err := ledger.NewBuyBackEntry(ledger.BuyBackEntryInput{
			PartyID:       party.ID,
			BatchID:       batch.ID,
			Quantity:      input.Quantity,
			Weight:        input.Weight,
			PricePerKg:    input.PricePerKg,
			Total:         total,
			ReferenceName: input.ReferenceName,
			Snapshot:      ledger.BalanceSnapshot{Before: before, After: after},
			Notes:         input.Notes,
		})
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record buy-back entry")
		}

		party.Balance = after
		result = BuyBackResult{Party: party, Batch: batch, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func (s *service) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*SalePage, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	result, err := s.repo.ListByParty(ctx, partyID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return result, nil
}

type settleInput struct {
	party       *models.Party
	lineItems   []models.SaleLineItem
	total       decimal.Decimal
	cashPayment bool
	notes       *string
	wholesale   bool
}

// settle writes the balance change (credit only), the active-batch link, the
// sale record and the ledger entry. It runs inside the caller's transaction
// after items and stock are resolved.
func (s *service) settle(ctx context.Context, tx *gorm.DB, input settleInput, result *SaleResult) error {
	paymentMethod := enums.PaymentMethodCredit
	if input.cashPayment {
		paymentMethod = enums.PaymentMethodCash
	}

	var partyID *uuid.UUID
	var batchID *uuid.UUID
	var snapshot *ledger.BalanceSnapshot
	if input.party != nil {
		id := input.party.ID
		partyID = &id

		batch, err := s.batchRepo.WithTx(tx).FindActiveByParty(ctx, input.party.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active batch")
		}
		if batch != nil {
			batchID = &batch.ID
		}

		before := input.party.Balance
		after := before
		if !input.cashPayment {
			after = before.Sub(input.total)
			ok, err := s.partyRepo.WithTx(tx).UpdateBalanceCAS(ctx, input.party.ID, before, after)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently, retry")
			}
			input.party.Balance = after
		}
		snapshot = &ledger.BalanceSnapshot{Before: before, After: after}
	}

	sale := &models.Sale{
		ID:            uuid.New(),
		PartyID:       partyID,
		BatchID:       batchID,
		PaymentMethod: paymentMethod,
		TotalAmount:   input.total,
		Wholesale:     input.wholesale,
		Notes:         input.notes,
		Items:         input.lineItems,
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	snapshots := make([]ledger.SaleItemSnapshot, 0, len(sale.Items))
	for _, item := range sale.Items {
		snapshots = append(snapshots, ledger.SaleItemSnapshot{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Total:     item.Total,
		})
	}

	entry, err := ledger.NewSaleEntry(ledger.SaleEntryInput{
		SaleID:        sale.ID,
		PartyID:       partyID,
		BatchID:       batchID,
		PaymentMethod: paymentMethod,
		Total:         input.total,
		Items:         snapshots,
		Snapshot:      snapshot,
		Notes:         input.notes,
		Wholesale:     input.wholesale,
	})
	if err != nil {
		return err
	}
	if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale entry")
	}

	result.Sale = sale
	result.Party = input.party
	result.Entry = entry
	return nil
}

func (s *service) loadParty(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Party, error) {
	party, err := s.partyRepo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return party, nil
}

// buildCatalogItems resolves products, captures their current prices into
// line-item snapshots and pre-checks stock so an obviously short sale fails
// before stock is touched.
func (s *service) buildCatalogItems(ctx context.Context, tx *gorm.DB, items []SaleItemInput) ([]models.SaleLineItem, []inventory.StockDecrement, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.inventoryRepo.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	total := decimal.Zero
	lineItems := make([]models.SaleLineItem, 0, len(items))
	decrements := make([]inventory.StockDecrement, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if product.StockQuantity < item.Quantity {
			return nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}

		productID := product.ID
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(lineTotal)
		lineItems = append(lineItems, models.SaleLineItem{
			ID:        uuid.New(),
			ProductID: &productID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Total:     lineTotal,
		})
		decrements = append(decrements, inventory.StockDecrement{
			ProductID: product.ID,
			Quantity:  item.Quantity,
		})
	}
	return lineItems, decrements, total, nil
}
