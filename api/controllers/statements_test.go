package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	batchsvc "github.com/nayhtetaung/feedledger-backend/internal/batches"
	ledgersvc "github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type stubBatchService struct {
	batch   *models.Batch
	batches []models.Batch
	err     error
}

func (s *stubBatchService) StartNewBatch(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	return s.batch, s.err
}

func (s *stubBatchService) Get(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return s.batch, s.err
}

func (s *stubBatchService) GetActive(ctx context.Context, partyID uuid.UUID) (*models.Batch, error) {
	return s.batch, s.err
}

func (s *stubBatchService) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*batchsvc.BatchPage, error) {
	return &batchsvc.BatchPage{Batches: s.batches}, s.err
}

func (s *stubBatchService) AddDiscount(ctx context.Context, input batchsvc.AddDiscountInput) (*batchsvc.DiscountResult, error) {
	return nil, s.err
}

func (s *stubBatchService) RemoveDiscount(ctx context.Context, batchID, discountID uuid.UUID) (*batchsvc.DiscountResult, error) {
	return nil, s.err
}

type stubLedgerService struct {
	entries []models.Transaction
	cursor  string
	err     error
}

func (s *stubLedgerService) Record(ctx context.Context, entry *models.Transaction) error {
	return s.err
}

func (s *stubLedgerService) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*ledgersvc.TransactionPage, error) {
	return &ledgersvc.TransactionPage{Transactions: s.entries, NextCursor: s.cursor}, s.err
}

func (s *stubLedgerService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error) {
	return s.entries, s.err
}

func TestGetPartyStatement(t *testing.T) {
	partyID := uuid.New()
	partyStub := &stubPartyService{
		party: &models.Party{ID: partyID, Name: "Ma Khin", Kind: enums.PartyKindCustomer, Balance: decimal.RequireFromString("-40.00")},
	}
	batchStub := &stubBatchService{
		batches: []models.Batch{{ID: uuid.New(), PartyID: partyID, BatchNumber: 1, Status: enums.BatchStatusActive}},
	}
	ledgerStub := &stubLedgerService{
		entries: []models.Transaction{{ID: uuid.New(), Type: enums.TransactionTypeSale}},
		cursor:  "next",
	}
	handler := GetPartyStatement(partyStub, batchStub, ledgerStub, nil)

	req := requestWithParam(http.MethodGet, "/api/v1/parties/"+partyID.String()+"/statement", "partyID", partyID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Party        *models.Party        `json:"party"`
			Batches      []models.Batch       `json:"batches"`
			Transactions []models.Transaction `json:"transactions"`
			NextCursor   string               `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Party == nil || envelope.Data.Party.ID != partyID {
		t.Fatalf("expected party %s in statement, got %+v", partyID, envelope.Data.Party)
	}
	if len(envelope.Data.Batches) != 1 || len(envelope.Data.Transactions) != 1 {
		t.Fatalf("expected 1 batch and 1 transaction, got %d and %d", len(envelope.Data.Batches), len(envelope.Data.Transactions))
	}
	if envelope.Data.NextCursor != "next" {
		t.Fatalf("expected cursor to pass through, got %q", envelope.Data.NextCursor)
	}
}

func TestGetPartyStatementBadID(t *testing.T) {
	handler := GetPartyStatement(&stubPartyService{}, &stubBatchService{}, &stubLedgerService{}, nil)

	req := requestWithParam(http.MethodGet, "/api/v1/parties/nope/statement", "partyID", "nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
