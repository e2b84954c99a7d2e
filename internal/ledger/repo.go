package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

// Repository manages persistence for ledger transactions. Rows are insert
// only; there are no update or delete methods on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.Transaction) error
	ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*TransactionPage, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error)
}

// TransactionPage is one page of a party's transaction history, newest first.
type TransactionPage struct {
	Transactions []models.Transaction
	NextCursor   string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*TransactionPage, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("party_id = ?", partyID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	kept, next := pagination.Page(len(rows), page.Limit, func(i int) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rows[i].CreatedAt, ID: rows[i].ID}
	})
	return &TransactionPage{
		Transactions: rows[:kept],
		NextCursor:   next,
	}, nil
}

func (r *repository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
