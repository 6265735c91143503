package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/responses"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/validators"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

type availabilityChecker interface {
	CheckBatch(ctx context.Context, requests []inventory.StockRequest) (inventory.AvailabilityReport, error)
}

type restocker interface {
	Restock(ctx context.Context, productID uuid.UUID, qty int, adminID uuid.UUID) (*models.InventoryRecord, error)
}

type availabilityRequest struct {
	Items []inventory.StockRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// CheckAvailability answers whether a prospective cart is in stock right now.
// The answer is advisory; nothing is reserved.
func CheckAvailability(ledger availabilityChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}

		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := ledger.CheckBatch(r.Context(), payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100000"`
}

type restockResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	AvailableQty int       `json:"available_qty"`
}

// AdminRestock adds received units to a product's stock.
func AdminRestock(svc restocker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restock unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Restock(r.Context(), productID, payload.Quantity, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, restockResponse{ProductID: record.ProductID, AvailableQty: record.AvailableQty})
	}
}
