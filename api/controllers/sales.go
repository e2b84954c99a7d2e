package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	salesvc "github.com/nayhtetaung/feedledger-backend/internal/sales"
	pkgerrors "github.com/nayhtetaung/feedledger-backend/pkg/errors"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
)

// CreateSale settles a retail sale of catalog products. Omitting party_id
// records a cash walk-in sale.
func CreateSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreateWholesaleSale settles a sale of free-form goods to a wholesale buyer.
func CreateWholesaleSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload wholesaleSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.WholesaleSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreateBuyBack settles the business buying livestock back from a party.
func CreateBuyBack(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload buyBackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BuyFromParty(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func ListPartySales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
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

type saleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createSaleRequest struct {
	PartyID     *string           `json:"party_id,omitempty" validate:"omitempty,uuid"`
	Items       []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	CashPayment bool              `json:"cash_payment"`
	Notes       *string           `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r createSaleRequest) toInput() (salesvc.CreateSaleInput, error) {
	input := salesvc.CreateSaleInput{
		CashPayment: r.CashPayment,
		Notes:       trimNotes(r.Notes),
	}
	if r.PartyID != nil {
		id, err := uuid.Parse(*r.PartyID)
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid party id")
		}
		input.PartyID = &id
	}
	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		input.Items = append(input.Items, salesvc.SaleItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}
	return input, nil
}

type freeFormItemRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	UnitPrice string `json:"unit_price" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type wholesaleSaleRequest struct {
	PartyID     string                `json:"party_id" validate:"required,uuid"`
	Items       []freeFormItemRequest `json:"items" validate:"required,min=1,dive"`
	CashPayment bool                  `json:"cash_payment"`
	Notes       *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r wholesaleSaleRequest) toInput() (salesvc.WholesaleSaleInput, error) {
	partyID, err := uuid.Parse(r.PartyID)
	if err != nil {
		return salesvc.WholesaleSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid party id")
	}
	input := salesvc.WholesaleSaleInput{
		PartyID:     partyID,
		CashPayment: r.CashPayment,
		Notes:       trimNotes(r.Notes),
	}
	for _, item := range r.Items {
		unitPrice, priceErr := decimal.NewFromString(strings.TrimSpace(item.UnitPrice))
		if priceErr != nil {
			return salesvc.WholesaleSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, priceErr, "invalid unit price")
		}
		input.Items = append(input.Items, salesvc.FreeFormItemInput{
			Name:      validators.SanitizeString(item.Name, 200),
			UnitPrice: unitPrice.Round(2),
			Quantity:  item.Quantity,
		})
	}
	return input, nil
}

type buyBackRequest struct {
	PartyID       string  `json:"party_id" validate:"required,uuid"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	Weight        string  `json:"weight" validate:"required"`
	PricePerKg    string  `json:"price_per_kg" validate:"required"`
	ReferenceName *string `json:"reference_name,omitempty" validate:"omitempty,max=200"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r buyBackRequest) toInput() (salesvc.BuyBackInput, error) {
	partyID, err := uuid.Parse(r.PartyID)
	if err != nil {
		return salesvc.BuyBackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid party id")
	}
	weight, err := decimal.NewFromString(strings.TrimSpace(r.Weight))
	if err != nil {
		return salesvc.BuyBackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weight")
	}
	pricePerKg, err := decimal.NewFromString(strings.TrimSpace(r.PricePerKg))
	if err != nil {
		return salesvc.BuyBackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price per kg")
	}
	return salesvc.BuyBackInput{
		PartyID:       partyID,
		Quantity:      r.Quantity,
		Weight:        weight,
		PricePerKg:    pricePerKg,
		ReferenceName: r.ReferenceName,
		Notes:         trimNotes(r.Notes),
	}, nil
}
