package controllers

import (
	"net/http"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	ledgersvc "github.com/nayhtetaung/feedledger-backend/internal/ledger"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
)

// ListPartyTransactions returns a party's ledger history, newest first.
func ListPartyTransactions(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

// ListBatchTransactions returns every entry written during a batch, oldest
// first, forming the batch statement.
func ListBatchTransactions(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := validators.ParseUUIDParam(r, "batchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transactions": entries})
	}
}
