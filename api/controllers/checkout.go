package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/responses"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/validators"
	checkoutsvc "github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/checkout"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

type checkoutResponse struct {
	Order       orderResponse `json:"order"`
	PaymentID   uuid.UUID     `json:"payment_id"`
	RedirectURL string        `json:"redirect_url"`
}

// Checkout creates a pending order from the submitted lines and returns the
// hosted payment page the buyer is sent to.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:       newOrderResponse(result.Order, nil),
			PaymentID:   result.PaymentID,
			RedirectURL: result.RedirectURL,
		})
	}
}
