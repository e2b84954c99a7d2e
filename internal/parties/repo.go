package parties

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

// Repository manages persistence for parties.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, party *models.Party) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
	List(ctx context.Context, kind *enums.PartyKind, page pagination.Params) (*PartyPage, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateBalanceCAS(ctx context.Context, id uuid.UUID, expected, next decimal.Decimal) (bool, error)
}

// PartyPage is one page of parties, newest first.
type PartyPage struct {
	Parties    []models.Party
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a parties repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Create(party).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	var party models.Party
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *repository) List(ctx context.Context, kind *enums.PartyKind, page pagination.Params) (*PartyPage, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Party
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	kept, next := pagination.Page(len(rows), page.Limit, func(i int) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rows[i].CreatedAt, ID: rows[i].ID}
	})
	return &PartyPage{
		Parties:    rows[:kept],
		NextCursor: next,
	}, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Party{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateBalanceCAS applies a balance change only when the stored balance
// still matches the value the caller read. A false return means another
// operation settled in between and the caller must abort its transaction.
func (r *repository) UpdateBalanceCAS(ctx context.Context, id uuid.UUID, expected, next decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Party{}).
		Where("id = ? AND balance = ?", id, expected).
		Updates(map[string]any{
			"balance":    next,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
