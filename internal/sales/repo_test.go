package sales

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

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:sales_repo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sales := `
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  party_id TEXT,
  batch_id TEXT,
  payment_method TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  wholesale INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS sale_line_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  total TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(sales).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	require.NoError(t, db.Exec("DELETE FROM sale_line_items").Error)
	require.NoError(t, db.Exec("DELETE FROM sales").Error)
	return db
}

func createSale(t *testing.T, repo Repository, partyID *uuid.UUID, total string, created time.Time, items ...models.SaleLineItem) *models.Sale {
	t.Helper()

	sale := &models.Sale{
		ID:            uuid.New(),
		PartyID:       partyID,
		PaymentMethod: enums.PaymentMethodCredit,
		TotalAmount:   decimal.RequireFromString(total),
		CreatedAt:     created,
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].SaleID = sale.ID
		items[i].CreatedAt = created
	}
	sale.Items = items
	require.NoError(t, repo.Create(context.Background(), sale))
	return sale
}

func TestSalesRepositoryCreateAndFind(t *testing.T) {
	db := setupSalesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	productID := uuid.New()
	sale := createSale(t, repo, &partyID, "40.00", time.Now().UTC(), models.SaleLineItem{
		ProductID: &productID,
		Name:      "Starter Feed",
		UnitPrice: decimal.RequireFromString("8.00"),
		Quantity:  5,
		Total:     decimal.RequireFromString("40.00"),
	})

	found, err := repo.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Starter Feed", found.Items[0].Name)
	assert.True(t, found.Items[0].UnitPrice.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("40.00")))
	require.NotNil(t, found.PartyID)
	assert.Equal(t, partyID, *found.PartyID)
}

func TestSalesRepositoryFindMissing(t *testing.T) {
	db := setupSalesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSalesRepositoryListByParty_pagination(t *testing.T) {
	db := setupSalesTestDB(t)
	repo := NewRepository(db)

	partyID := uuid.New()
	otherParty := uuid.New()
	now := time.Now().UTC()

	oldest := createSale(t, repo, &partyID, "10.00", now.Add(-2*time.Hour))
	middle := createSale(t, repo, &partyID, "20.00", now.Add(-time.Hour))
	newest := createSale(t, repo, &partyID, "30.00", now)
	createSale(t, repo, &otherParty, "99.00", now)

	page, err := repo.ListByParty(context.Background(), partyID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Sales, 2)
	assert.Equal(t, newest.ID, page.Sales[0].ID)
	assert.Equal(t, middle.ID, page.Sales[1].ID)
	assert.NotEmpty(t, page.NextCursor)

	second, err := repo.ListByParty(context.Background(), partyID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Sales, 1)
	assert.Equal(t, oldest.ID, second.Sales[0].ID)
	assert.Empty(t, second.NextCursor)
}
