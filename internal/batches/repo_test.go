package batches

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

func setupBatchesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:batches_repo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	batches := `
CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  party_id TEXT NOT NULL,
  batch_number INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  start_date DATETIME NOT NULL,
  end_date DATETIME,
  starting_balance TEXT NOT NULL,
  ending_balance TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (party_id, batch_number)
);`
	discounts := `
CREATE TABLE IF NOT EXISTS batch_discounts (
  id TEXT PRIMARY KEY,
  batch_id TEXT NOT NULL,
  description TEXT NOT NULL,
  amount TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(batches).Error)
	require.NoError(t, db.Exec(discounts).Error)
	require.NoError(t, db.Exec("DELETE FROM batch_discounts").Error)
	require.NoError(t, db.Exec("DELETE FROM batches").Error)
	return db
}

func createBatch(t *testing.T, db *gorm.DB, partyID uuid.UUID, number int, status enums.BatchStatus, created time.Time) *models.Batch {
	t.Helper()

	batch := &models.Batch{
		ID:              uuid.New(),
		PartyID:         partyID,
		BatchNumber:     number,
		Status:          status,
		StartDate:       created,
		StartingBalance: decimal.Zero,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	require.NoError(t, db.Create(batch).Error)
	return batch
}

func TestRepositoryClose_onlyActiveBatches(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	batch := createBatch(t, db, partyID, 1, enums.BatchStatusActive, now)

	closed, err := repo.Close(context.Background(), batch.ID, now, decimal.RequireFromString("45"))
	require.NoError(t, err)
	assert.True(t, closed)

	stored, err := repo.FindByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BatchStatusCompleted, stored.Status)
	require.NotNil(t, stored.EndingBalance)
	assert.True(t, stored.EndingBalance.Equal(decimal.RequireFromString("45")))
	require.NotNil(t, stored.EndDate)

	// closing again must be a no-op
	closed, err = repo.Close(context.Background(), batch.ID, now, decimal.Zero)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestRepositoryFindLatestByParty(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	createBatch(t, db, partyID, 1, enums.BatchStatusCompleted, now.Add(-2*time.Hour))
	createBatch(t, db, partyID, 2, enums.BatchStatusCompleted, now.Add(-time.Hour))
	latest := createBatch(t, db, partyID, 3, enums.BatchStatusActive, now)

	found, err := repo.FindLatestByParty(context.Background(), partyID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, found.ID)
	assert.Equal(t, 3, found.BatchNumber)

	_, err = repo.FindLatestByParty(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindActiveByParty(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	createBatch(t, db, partyID, 1, enums.BatchStatusCompleted, now.Add(-time.Hour))
	active := createBatch(t, db, partyID, 2, enums.BatchStatusActive, now)

	found, err := repo.FindActiveByParty(context.Background(), partyID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
}

func TestRepositoryCreate_duplicateNumberRejected(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	createBatch(t, db, partyID, 1, enums.BatchStatusCompleted, now)

	err := repo.Create(context.Background(), &models.Batch{
		ID:              uuid.New(),
		PartyID:         partyID,
		BatchNumber:     1,
		Status:          enums.BatchStatusActive,
		StartDate:       now,
		StartingBalance: decimal.Zero,
	})
	require.Error(t, err)
}

func TestRepositoryDiscountLifecycle(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	batch := createBatch(t, db, partyID, 1, enums.BatchStatusActive, now)

	discount := &models.BatchDiscount{
		ID:          uuid.New(),
		BatchID:     batch.ID,
		Description: "loyalty",
		Amount:      decimal.RequireFromString("30"),
	}
	require.NoError(t, repo.AddDiscount(context.Background(), discount))

	stored, err := repo.FindByID(context.Background(), batch.ID)
	require.NoError(t, err)
	require.Len(t, stored.Discounts, 1)
	assert.Equal(t, "loyalty", stored.Discounts[0].Description)

	require.NoError(t, repo.DeleteDiscount(context.Background(), discount.ID))
	_, err = repo.FindDiscount(context.Background(), discount.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListByParty_numbersDescending(t *testing.T) {
	db := setupBatchesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	now := time.Now().UTC()
	createBatch(t, db, partyID, 1, enums.BatchStatusCompleted, now.Add(-2*time.Hour))
	createBatch(t, db, partyID, 2, enums.BatchStatusActive, now.Add(-time.Hour))

	page, err := repo.ListByParty(context.Background(), partyID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Batches, 2)
	assert.Equal(t, 2, page.Batches[0].BatchNumber)
	assert.Equal(t, 1, page.Batches[1].BatchNumber)
}
