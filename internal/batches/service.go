package batches

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/pkg/db"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/metrics"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines batch lifecycle and discount operations.
type Service interface {
	StartNewBatch(ctx context.Context, partyID uuid.UUID) (*models.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetActive(ctx context.Context, partyID uuid.UUID) (*models.Batch, error)
	ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*BatchPage, error)
	AddDiscount(ctx context.Context, input AddDiscountInput) (*DiscountResult, error)
	RemoveDiscount(ctx context.Context, batchID, discountID uuid.UUID) (*DiscountResult, error)
}

type service struct {
	repo       Repository
	partyRepo  parties.Repository
	ledgerRepo ledger.Repository
	tx         txRunner
	metrics    *metrics.LedgerMetrics
}

// AddDiscountInput captures a discount applied to an open batch.
type AddDiscountInput struct {
	BatchID     uuid.UUID
	Description string
	Amount      decimal.Decimal
}

// DiscountResult returns the batch and party state after a discount change.
type DiscountResult struct {
	Batch *models.Batch
	Party *models.Party
	Entry *models.Transaction
}

// NewService builds a batches service with the required dependencies.
// Metrics may be nil; recording is a no-op then.
func NewService(repo Repository, partyRepo parties.Repository, ledgerRepo ledger.Repository, tx txRunner, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batches repository required")
	}
	if partyRepo == nil {
		return nil, fmt.Errorf("parties repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		partyRepo:  partyRepo,
		ledgerRepo: ledgerRepo,
		tx:         tx,
		metrics:    m,
	}, nil
}

// StartNewBatch closes the party's active batch (if one exists) and opens the
// next one in a single transaction. The closed batch's ending balance and the
// new batch's starting balance are the same snapshot of the party's balance.
func (s *service) StartNewBatch(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	started := time.Now()
	batch, err := s.startNewBatch(ctx, partyID)
	s.metrics.ObserveDuration("start_new_batch", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("start_new_batch")
		}
		s.metrics.IncFailure("start_new_batch")
		return nil, err
	}
	s.metrics.IncSuccess("start_new_batch")
	return batch, nil
}

func (s *service) startNewBatch(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}

	var created *models.Batch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		partyRepo := s.partyRepo.WithTx(tx)

		party, err := partyRepo.FindByID(ctx, partyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
		}

		now := time.Now().UTC()
		nextNumber := 1

		latest, err := repo.FindLatestByParty(ctx, partyID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest batch")
		}
		if latest != nil {
			nextNumber = latest.BatchNumber + 1
			if latest.Status == enums.BatchStatusActive {
				closed, err := repo.Close(ctx, latest.ID, now, party.Balance)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close active batch")
				}
				if !closed {
					return pkgerrors.New(pkgerrors.CodeConflict, "batch closed concurrently, retry")
				}
			}
		}

		batch := &models.Batch{
			ID:              uuid.New(),
			PartyID:         partyID,
			BatchNumber:     nextNumber,
			Status:          enums.BatchStatusActive,
			StartDate:       now,
			StartingBalance: party.Balance,
		}
		if err := repo.Create(ctx, batch); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "batch number taken concurrently, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
		}
		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	return batch, nil
}

func (s *service) GetActive(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	batch, err := s.repo.FindActiveByParty(ctx, partyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active batch")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active batch")
	}
	return batch, nil
}

func (s *service) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*BatchPage, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	result, err := s.repo.ListByParty(ctx, partyID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batches")
	}
	return result, nil
}

func (s *service) AddDiscount(ctx context.Context, input AddDiscountInput) (*DiscountResult, error) {
	started := time.Now()
	result, err := s.addDiscount(ctx, input)
	s.metrics.ObserveDuration("add_discount", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("add_discount")
		}
		s.metrics.IncFailure("add_discount")
		return nil, err
	}
	s.metrics.IncSuccess("add_discount")
	return result, nil
}

func (s *service) addDiscount(ctx context.Context, input AddDiscountInput) (*DiscountResult, error) {
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var result DiscountResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, party, err := s.loadActiveBatchAndParty(ctx, tx, input.BatchID)
		if err != nil {
			return err
		}

		before := party.Balance
		after := before.Add(input.Amount)
		ok, err := s.partyRepo.WithTx(tx).UpdateBalanceCAS(ctx, party.ID, before, after)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently, retry")
		}

		discount := &models.BatchDiscount{
			ID:          uuid.New(),
			BatchID:     batch.ID,
			Description: input.Description,
			Amount:      input.Amount,
		}
		if err := repo.AddDiscount(ctx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
		}

		entry, err := ledger.NewDiscountEntry(ledger.DiscountEntryInput{
			PartyID:     party.ID,
			BatchID:     batch.ID,
			DiscountID:  discount.ID,
			Description: input.Description,
			Amount:      input.Amount,
			Snapshot:    ledger.BalanceSnapshot{Before: before, After: after},
		})
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discount entry")
		}

		party.Balance = after
		batch.Discounts = append(batch.Discounts, *discount)
		result = DiscountResult{Batch: batch, Party: party, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) RemoveDiscount(ctx context.Context, batchID, discountID uuid.UUID) (*DiscountResult, error) {
	started := time.Now()
	result, err := s.removeDiscount(ctx, batchID, discountID)
	s.metrics.ObserveDuration("remove_discount", time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict("remove_discount")
		}
		s.metrics.IncFailure("remove_discount")
		return nil, err
	}
	s.metrics.IncSuccess("remove_discount")
	return result, nil
}

func (s *service) removeDiscount(ctx context.Context, batchID, discountID uuid.UUID) (*DiscountResult, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if discountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}

	var result DiscountResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, party, err := s.loadActiveBatchAndParty(ctx, tx, batchID)
		if err != nil {
			return err
		}

		discount, err := repo.FindDiscount(ctx, discountID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
		}
		if discount.BatchID != batch.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount does not belong to batch")
		}

		before := party.Balance
		after := before.Sub(discount.Amount)
		ok, err := s.partyRepo.WithTx(tx).UpdateBalanceCAS(ctx, party.ID, before, after)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently, retry")
		}

		if err := repo.DeleteDiscount(ctx, discount.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete discount")
		}

		entry, err := ledger.NewDiscountEntry(ledger.DiscountEntryInput{
			PartyID:     party.ID,
			BatchID:     batch.ID,
			DiscountID:  discount.ID,
			Description: discount.Description,
			Amount:      discount.Amount,
			Snapshot:    ledger.BalanceSnapshot{Before: before, After: after},
			Removal:     true,
		})
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discount removal entry")
		}

		party.Balance = after
		remaining := batch.Discounts[:0]
		for _, d := range batch.Discounts {
			if d.ID != discount.ID {
				remaining = append(remaining, d)
			}
		}
		batch.Discounts = remaining
		result = DiscountResult{Batch: batch, Party: party, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) loadActiveBatchAndParty(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*models.Batch, *models.Party, error) {
	batch, err := s.repo.WithTx(tx).FindByID(ctx, batchID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if batch.Status != enums.BatchStatusActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "batch is not active")
	}

	party, err := s.partyRepo.WithTx(tx).FindByID(ctx, batch.PartyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return batch, party, nil
}
