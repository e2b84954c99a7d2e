package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

// Service exposes the append-only transaction log.
type Service interface {
	Record(ctx context.Context, entry *models.Transaction) error
	ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*TransactionPage, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error)
}

type service struct {
	repo Repository
}

// NewService wires the ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, entry *models.Transaction) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry required")
	}
	if !entry.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", entry.Type))
	}
	if entry.Type.AffectsBalance() && entry.PartyID != nil && (entry.BalanceBefore == nil || entry.BalanceAfter == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "party entry missing balance snapshot")
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger entry")
	}
	return nil
}

func (s *service) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*TransactionPage, error) {
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	result, err := s.repo.ListByParty(ctx, partyID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list party transactions")
	}
	return result, nil
}

func (s *service) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	rows, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batch transactions")
	}
	return rows, nil
}
