package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	partysvc "github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/pkg/enums"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

// CreateParty registers a customer or wholesale buyer.
func CreateParty(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPartyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.Register(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, party)
	}
}

func GetParty(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

func ListParties(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var kind *enums.PartyKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, parseErr := enums.ParsePartyKind(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid kind"))
				return
			}
			kind = &parsed
		}

		result, err := svc.List(r.Context(), kind, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func UpdateParty(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePartyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.UpdateProfile(r.Context(), id, partysvc.UpdatePartyInput{
			Name:    payload.Name,
			Phone:   payload.Phone,
			Address: payload.Address,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

// Deposit credits a party's balance and records the ledger entry.
func Deposit(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(svc.Deposit, logg)
}

// Withdraw debits a party's balance; it never lets the balance go negative.
func Withdraw(svc partysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(svc.Withdraw, logg)
}

func movementHandler(
	move func(ctx context.Context, input partysvc.MovementInput) (*partysvc.MovementResult, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload movementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := move(r.Context(), partysvc.MovementInput{
			PartyID: id,
			Amount:  amount,
			Notes:   trimNotes(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type createPartyRequest struct {
	Kind    string  `json:"kind" validate:"required,oneof=customer wholesale_buyer"`
	Name    string  `json:"name" validate:"required,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r createPartyRequest) toInput() (partysvc.RegisterPartyInput, error) {
	kind, err := enums.ParsePartyKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return partysvc.RegisterPartyInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind")
	}
	return partysvc.RegisterPartyInput{
		Kind:    kind,
		Name:    validators.SanitizeString(r.Name, 200),
		Phone:   r.Phone,
		Address: r.Address,
		Notes:   trimNotes(r.Notes),
	}, nil
}

type updatePartyRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type movementRequest struct {
	Amount string  `json:"amount" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return amount.Round(2), nil
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := validators.SanitizeString(*notes, 1000)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func pageFromRequest(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
