package parties

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/metrics"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines party registration, lookup and money movement operations.
type Service interface {
	Register(ctx context.Context, input RegisterPartyInput) (*models.Party, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Party, error)
	List(ctx context.Context, kind *enums.PartyKind, page pagination.Params) (*PartyPage, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdatePartyInput) (*models.Party, error)
	Deposit(ctx context.Context, input MovementInput) (*MovementResult, error)
	Withdraw(ctx context.Context, input MovementInput) (*MovementResult, error)
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	tx         txRunner
	metrics    *metrics.LedgerMetrics
}

// RegisterPartyInput captures the data needed to open a party account.
type RegisterPartyInput struct {
	Kind    enums.PartyKind
	Name    string
	Phone   *string
	Address *string
	Notes   *string
}

// UpdatePartyInput carries optional profile fields; nil means unchanged.
type UpdatePartyInput struct {
	Name    *string
	Phone   *string
	Address *string
	Notes   *string
}

// MovementInput is a deposit or withdrawal against a party's balance.
type MovementInput struct {
	PartyID uuid.UUID
	Amount  decimal.Decimal
	Notes   *string
}

// MovementResult returns the settled party state and the ledger row written
// in the same transaction.
type MovementResult struct {
	Party *models.Party
	Entry *models.Transaction
}

// NewService builds a parties service with the required dependencies.
// Metrics may be nil; recording is a no-op then.
func NewService(repo Repository, ledgerRepo ledger.Repository, tx txRunner, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
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
		ledgerRepo: ledgerRepo,
		tx:         tx,
		metrics:    m,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterPartyInput) (*models.Party, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid party kind")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name required")
	}

	party := &models.Party{
		ID:      uuid.New(),
		Kind:    input.Kind,
		Name:    input.Name,
		Phone:   input.Phone,
		Address: input.Address,
		Notes:   input.Notes,
		Balance: decimal.Zero,
	}
	if err := s.repo.Create(ctx, party); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
	}
	return party, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	party, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return party, nil
}

func (s *service) List(ctx context.Context, kind *enums.PartyKind, page pagination.Params) (*PartyPage, error) {
	if kind != nil && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid party kind filter")
	}
	result, err := s.repo.List(ctx, kind, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parties")
	}
	return result, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdatePartyInput) (*models.Party, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if input.Name != nil && *input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name cannot be empty")
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update party")
	}
	return s.Get(ctx, id)
}

func (s *service) Deposit(ctx context.Context, input MovementInput) (*MovementResult, error) {
	return s.move(ctx, "deposit", input, false)
}

func (s *service) Withdraw(ctx context.Context, input MovementInput) (*MovementResult, error) {
	return s.move(ctx, "withdraw", input, true)
}

func (s *service) move(ctx context.Context, operation string, input MovementInput, withdrawal bool) (*MovementResult, error) {
	started := time.Now()
	result, err := s.runMove(ctx, input, withdrawal)
	s.metrics.ObserveDuration(operation, time.Since(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict(operation)
		}
		s.metrics.IncFailure(operation)
		return nil, err
	}
	s.metrics.IncSuccess(operation)
	return result, nil
}

func (s *service) runMove(ctx context.Context, input MovementInput, withdrawal bool) (*MovementResult, error) {
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var result MovementResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		party, err := repo.FindByID(ctx, input.PartyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
		}

		before := party.Balance
		var after decimal.Decimal
		if withdrawal {
			if input.Amount.GreaterThan(before) {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "withdrawal exceeds balance")
			}
			after = before.Sub(input.Amount)
		} else {
			after = before.Add(input.Amount)
		}

		ok, err := repo.UpdateBalanceCAS(ctx, party.ID, before, after)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "balance changed concurrently, retry")
		}

		snapshot := ledger.BalanceSnapshot{Before: before, After: after}
		var entry *models.Transaction
		if withdrawal {
			entry, err = ledger.NewWithdrawalEntry(party.ID, input.Amount, snapshot, input.Notes)
		} else {
			entry, err = ledger.NewDepositEntry(party.ID, input.Amount, snapshot, input.Notes)
		}
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger entry")
		}

		party.Balance = after
		result.Party = party
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
