package controllers

import (
	"context"
	"net/http"

	"github.com/nayhtetaung/feedledger-backend/api/responses"
	"github.com/nayhtetaung/feedledger-backend/api/validators"
	inventorysvc "github.com/nayhtetaung/feedledger-backend/internal/inventory"
	"github.com/nayhtetaung/feedledger-backend/pkg/db/models"
	"github.com/nayhtetaung/feedledger-backend/pkg/logger"
)

func CreateProduct(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseAmount(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), inventorysvc.CreateProductInput{
			Name:          validators.SanitizeString(payload.Name, 200),
			Price:         price,
			StockQuantity: payload.StockQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func GetProduct(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListProducts(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AddStock raises a product's stock count and records a STOCK_ADD entry.
func AddStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc.AddStock, logg)
}

// RemoveStock lowers a product's stock count; it fails rather than going
// below zero.
func RemoveStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return stockHandler(svc.RemoveStock, logg)
}

func stockHandler(
	adjust func(ctx context.Context, input inventorysvc.StockAdjustmentInput) (*models.Product, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockAdjustmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := adjust(r.Context(), inventorysvc.StockAdjustmentInput{
			ProductID: id,
			Quantity:  payload.Quantity,
			Notes:     trimNotes(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Price         string `json:"price" validate:"required"`
	StockQuantity int    `json:"stock_quantity" validate:"min=0"`
}

type stockAdjustmentRequest struct {
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
