package controllers

import (
	"net/http"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	batchsvc "github.com/nayhtetaung/feedledger-backend/internal/batches"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
)

// StartBatch closes the party's active batch, if any, and opens the next
// numbered one.
func StartBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.StartNewBatch(r.Context(), partyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

func GetBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "batchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

func GetActiveBatch(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.GetActive(r.Context(), partyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

func ListBatches(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := validators.ParseUUIDParam(r, "partyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := pageFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByParty(r.Context(), partyID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AddBatchDiscount applies a discount to the active batch and credits the
// party's balance.
func AddBatchDiscount(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := validators.ParseUUIDParam(r, "batchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddDiscount(r.Context(), batchsvc.AddDiscountInput{
			BatchID:     batchID,
			Description: validators.SanitizeString(payload.Description, 500),
			Amount:      amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RemoveBatchDiscount reverses a previously applied discount.
func RemoveBatchDiscount(svc batchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := validators.ParseUUIDParam(r, "batchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountID, err := validators.ParseUUIDParam(r, "discountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RemoveDiscount(r.Context(), batchID, discountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type addDiscountRequest struct {
	Description string `json:"description" validate:"required,max=500"`
	Amount      string `json:"amount" validate:"required"`
}
