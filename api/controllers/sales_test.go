package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	salesvc "github.com/nayhtetaung/feedledger-backend/internal/sales"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type stubSalesService struct {
	saleResult    *salesvc.SaleResult
	buyBackResult *salesvc.BuyBackResult
	err           error

	gotSale    salesvc.CreateSaleInput
	gotBuyBack salesvc.BuyBackInput
}

func (s *stubSalesService) CreateSale(ctx context.Context, input salesvc.CreateSaleInput) (*salesvc.SaleResult, error) {
	s.gotSale = input
	return s.saleResult, s.err
}

func (s *stubSalesService) WholesaleSale(ctx context.Context, input salesvc.WholesaleSaleInput) (*salesvc.SaleResult, error) {
	return s.saleResult, s.err
}

func (s *stubSalesService) BuyFromParty(ctx context.Context, input salesvc.BuyBackInput) (*salesvc.BuyBackResult, error) {
	s.gotBuyBack = input
	return s.buyBackResult, s.err
}

func (s *stubSalesService) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return nil, s.err
}

func (s *stubSalesService) ListByParty(ctx context.Context, partyID uuid.UUID, page pagination.Params) (*salesvc.SalePage, error) {
	return &salesvc.SalePage{}, s.err
}

func TestCreateSaleForwardsInput(t *testing.T) {
	partyID := uuid.New()
	productID := uuid.New()
	stub := &stubSalesService{
		saleResult: &salesvc.SaleResult{
			Sale: &models.Sale{ID: uuid.New(), TotalAmount: decimal.RequireFromString("40.00")},
		},
	}
	handler := CreateSale(stub, nil)

	body := []byte(`{"party_id":"` + partyID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":5}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.gotSale.PartyID == nil || *stub.gotSale.PartyID != partyID {
		t.Fatalf("expected party id forwarded")
	}
	if len(stub.gotSale.Items) != 1 || stub.gotSale.Items[0].ProductID != productID || stub.gotSale.Items[0].Quantity != 5 {
		t.Fatalf("expected items forwarded, got %#v", stub.gotSale.Items)
	}
	if stub.gotSale.CashPayment {
		t.Fatalf("expected credit sale by default")
	}
}

func TestCreateSaleRejectsEmptyItems(t *testing.T) {
	stub := &stubSalesService{}
	handler := CreateSale(stub, nil)

	body := []byte(`{"items":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateBuyBackForwardsInput(t *testing.T) {
	partyID := uuid.New()
	stub := &stubSalesService{
		buyBackResult: &salesvc.BuyBackResult{
			Party: &models.Party{ID: partyID, Balance: decimal.RequireFromString("20.00")},
		},
	}
	handler := CreateBuyBack(stub, nil)

	body := []byte(`{"party_id":"` + partyID.String() + `","quantity":10,"weight":"25.00","price_per_kg":"2.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/buy-backs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.gotBuyBack.PartyID != partyID {
		t.Fatalf("expected party id forwarded")
	}
	if !stub.gotBuyBack.Weight.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected weight forwarded")
	}
	if !stub.gotBuyBack.PricePerKg.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("expected price per kg forwarded")
	}
}

func TestCreateBuyBackRejectsMissingWeight(t *testing.T) {
	stub := &stubSalesService{}
	handler := CreateBuyBack(stub, nil)

	body := []byte(`{"party_id":"` + uuid.NewString() + `","quantity":10,"price_per_kg":"2.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/buy-backs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
