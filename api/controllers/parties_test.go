package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	partysvc "github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type stubPartyService struct {
	party  *models.Party
	result *partysvc.MovementResult
	err    error

	gotMovement partysvc.MovementInput
}

func (s *stubPartyService) Register(ctx context.Context, input partysvc.RegisterPartyInput) (*models.Party, error) {
	return s.party, s.err
}

func (s *stubPartyService) Get(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	return s.party, s.err
}

func (s *stubPartyService) List(ctx context.Context, kind *enums.PartyKind, page pagination.Params) (*partysvc.PartyPage, error) {
	return &partysvc.PartyPage{}, s.err
}

func (s *stubPartyService) UpdateProfile(ctx context.Context, id uuid.UUID, input partysvc.UpdatePartyInput) (*models.Party, error) {
	return s.party, s.err
}

func (s *stubPartyService) Deposit(ctx context.Context, input partysvc.MovementInput) (*partysvc.MovementResult, error) {
	s.gotMovement = input
	return s.result, s.err
}

func (s *stubPartyService) Withdraw(ctx context.Context, input partysvc.MovementInput) (*partysvc.MovementResult, error) {
	s.gotMovement = input
	return s.result, s.err
}

func requestWithParam(method, target, key, value string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestDepositSuccess(t *testing.T) {
	partyID := uuid.New()
	stub := &stubPartyService{
		result: &partysvc.MovementResult{
			Party: &models.Party{ID: partyID, Balance: decimal.RequireFromString("100.00")},
		},
	}
	handler := Deposit(stub, nil)

	body := []byte(`{"amount":"100.00","notes":"opening deposit"}`)
	req := requestWithParam(http.MethodPost, "/api/v1/parties/"+partyID.String()+"/deposit", "partyID", partyID.String(), body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.gotMovement.PartyID != partyID {
		t.Fatalf("expected party id forwarded")
	}
	if !stub.gotMovement.Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected amount 100.00, got %s", stub.gotMovement.Amount)
	}
	if stub.gotMovement.Notes == nil || *stub.gotMovement.Notes != "opening deposit" {
		t.Fatalf("expected notes forwarded")
	}
}

func TestDepositRejectsBadAmount(t *testing.T) {
	stub := &stubPartyService{}
	handler := Deposit(stub, nil)

	partyID := uuid.New()
	body := []byte(`{"amount":"not-a-number"}`)
	req := requestWithParam(http.MethodPost, "/api/v1/parties/"+partyID.String()+"/deposit", "partyID", partyID.String(), body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDepositRejectsBadPartyID(t *testing.T) {
	stub := &stubPartyService{}
	handler := Deposit(stub, nil)

	body := []byte(`{"amount":"10.00"}`)
	req := requestWithParam(http.MethodPost, "/api/v1/parties/nope/deposit", "partyID", "nope", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	stub := &stubPartyService{
		err: pkgerrors.New(pkgerrors.CodeInsufficientBalance, "withdrawal exceeds balance"),
	}
	handler := Withdraw(stub, nil)

	partyID := uuid.New()
	body := []byte(`{"amount":"500.00"}`)
	req := requestWithParam(http.MethodPost, "/api/v1/parties/"+partyID.String()+"/withdraw", "partyID", partyID.String(), body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance code, got %s", envelope.Error.Code)
	}
}

func TestCreatePartySuccess(t *testing.T) {
	partyID := uuid.New()
	stub := &stubPartyService{
		party: &models.Party{ID: partyID, Kind: enums.PartyKindCustomer, Name: "Daw Mya"},
	}
	handler := CreateParty(stub, nil)

	body := []byte(`{"kind":"customer","name":"Daw Mya"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parties", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePartyRejectsUnknownKind(t *testing.T) {
	stub := &stubPartyService{}
	handler := CreateParty(stub, nil)

	body := []byte(`{"kind":"vendor","name":"Daw Mya"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parties", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
