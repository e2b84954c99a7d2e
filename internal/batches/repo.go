package batches

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

// Repository manages persistence for batches and their discount rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	FindActiveByParty(ctx context.Context, partyID uuid.UUID) (*models.Batch, error)
	FindLatestByParty(ctx context.Context, partyID uuid.UUID) (*models.Batch, error)
	ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*BatchPage, error)
	Close(ctx context.Context, batchID uuid.UUID, endDate time.Time, endingBalance decimal.Decimal) (bool, error)
	AddDiscount(ctx context.Context, discount *models.BatchDiscount) error
	FindDiscount(ctx context.Context, discountID uuid.UUID) (*models.BatchDiscount, error)
	DeleteDiscount(ctx context.Context, discountID uuid.UUID) error
}

// BatchPage is one page of a party's batches, newest first.
type BatchPage struct {
	Batches    []models.Batch
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a batches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).
		Preload("Discounts").
		Where("id = ?", id).
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindActiveByParty(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).
		Preload("Discounts").
		Where("party_id = ? AND status = ?", partyID, enums.BatchStatusActive).
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindLatestByParty returns the party's highest-numbered batch regardless of
// status. Batch numbering is derived from this row, never from a count.
func (r *repository) FindLatestByParty(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).
		Where("party_id = ?", partyID).
		Order("batch_number DESC").
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*BatchPage, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Discounts").
		Where("party_id = ?", partyID).
		Order("batch_number DESC").
		Limit(pagination.LimitWithBuffer(page.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Batch
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	kept, next := pagination.Page(len(rows), page.Limit, func(i int) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rows[i].CreatedAt, ID: rows[i].ID}
	})
	return &BatchPage{
		Batches:    rows[:kept],
		NextCursor: next,
	}, nil
}

// Close completes an active batch, snapshotting its ending balance. A false
// return means the batch was not active anymore.
func (r *repository) Close(ctx context.Context, batchID uuid.UUID, endDate time.Time, endingBalance decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND status = ?", batchID, enums.BatchStatusActive).
		Updates(map[string]any{
			"status":         enums.BatchStatusCompleted,
			"end_date":       endDate,
			"ending_balance": endingBalance,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AddDiscount(ctx context.Context, discount *models.BatchDiscount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *repository) FindDiscount(ctx context.Context, discountID uuid.UUID) (*models.BatchDiscount, error) {
	var discount models.BatchDiscount
	if err := r.db.WithContext(ctx).Where("id = ?", discountID).First(&discount).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repository) DeleteDiscount(ctx context.Context, discountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", discountID).
		Delete(&models.BatchDiscount{}).Error
}
