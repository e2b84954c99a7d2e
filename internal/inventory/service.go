package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the product catalog and stock bookkeeping. Sale settlement
// calls Decrement inside its own transaction; AddStock/RemoveStock are the
// standalone adjustments that also write STOCK_ADD/STOCK_REMOVE entries.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, page pagination.Params) (*ProductPage, error)
	Decrement(ctx context.Context, tx *gorm.DB, items []StockDecrement) error
	AddStock(ctx context.Context, input StockAdjustmentInput) (*models.Product, error)
	RemoveStock(ctx context.Context, input StockAdjustmentInput) (*models.Product, error)
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	tx         txRunner
}

// CreateProductInput captures a new catalog item.
type CreateProductInput struct {
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

// StockDecrement is one product's share of a bulk stock take.
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockAdjustmentInput records stock arriving or leaving outside of a sale.
type StockAdjustmentInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     *string
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, ledgerRepo ledger.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		ledgerRepo: ledgerRepo,
		tx:         tx,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, page pagination.Params) (*ProductPage, error) {
	result, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// Decrement applies a bulk stock take inside the caller's transaction. The
// first product that fails the floor check aborts the whole operation, so the
// caller's rollback leaves every count untouched.
func (s *service) Decrement(ctx context.Context, tx *gorm.DB, items []StockDecrement) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}
	repo := s.repo.WithTx(tx)
	for _, item := range items {
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "decrement quantity must be positive")
		}
		ok, err := repo.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
	}
	return nil
}

func (s *service) AddStock(ctx context.Context, input StockAdjustmentInput) (*models.Product, error) {
	return s.adjust(ctx, input, false)
}

func (s *service) RemoveStock(ctx context.Context, input StockAdjustmentInput) (*models.Product, error) {
	return s.adjust(ctx, input, true)
}

func (s *service) adjust(ctx context.Context, input StockAdjustmentInput, removal bool) (*models.Product, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		var entry *models.Transaction
		if removal {
			ok, err := repo.DecrementStock(ctx, product.ID, input.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
			}
			product.StockQuantity -= input.Quantity
			entry, err = ledger.NewStockRemoveEntry(product.ID, input.Quantity, product.Price, input.Notes)
			if err != nil {
				return err
			}
		} else {
			if err := repo.IncrementStock(ctx, product.ID, input.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
			}
			product.StockQuantity += input.Quantity
			entry, err = ledger.NewStockAddEntry(product.ID, input.Quantity, product.Price, input.Notes)
			if err != nil {
				return err
			}
		}

		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock entry")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
