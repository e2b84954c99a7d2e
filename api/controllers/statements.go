package controllers

import (
	"net/http"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	batchsvc "github.com/nayhtetaung/feedledger-backend/internal/batches"
	ledgersvc "github.com/nayhtetaung/feedledger-backend/internal/ledger"
	partysvc "github.com/nayhtetaung/feedledger-backend/internal/parties"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
	"github.com/nayhtetaung/feedledger-backend/pkg/pagination"
)

type partyStatement struct {
	Party        *models.Party        `json:"party"`
	Batches      []models.Batch       `json:"batches"`
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// GetPartyStatement composes the party's balance, its batches, and its recent
// ledger entries into a single read. Pagination applies to the transactions;
// the batches slice is the first page only.
func GetPartyStatement(parties partysvc.Service, batches batchsvc.Service, entries ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		party, err := parties.Get(r.Context(), partyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batchPage, err := batches.ListByParty(r.Context(), partyID, pagination.Params{Limit: pagination.DefaultLimit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txPage, err := entries.ListByParty(r.Context(), partyID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, partyStatement{
			Party:        party,
			Batches:      batchPage.Batches,
			Transactions: txPage.Transactions,
			NextCursor:   txPage.NextCursor,
		})
	}
}
