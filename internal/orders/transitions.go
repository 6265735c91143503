package orders

import (
	"fmt"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
)

// ValidateTransition checks that from -> to is an edge of the order lifecycle
// and that source is allowed to drive it.
func ValidateTransition(from, to enums.OrderStatus, source enums.TransitionSource) error {
	if !source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transition source %q", source))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", to))
	}
	if !from.CanTransitionTo(to) {
		return invalidTransition(from, to, source, "transition not allowed")
	}
	if !sourceMayDrive(from, to, source) {
		return invalidTransition(from, to, source, fmt.Sprintf("%s may not move an order from %s to %s", source, from, to))
	}
	return nil
}

func sourceMayDrive(from, to enums.OrderStatus, source enums.TransitionSource) bool {
	switch source {
	case enums.TransitionSourceAdmin:
		return true
	case enums.TransitionSourceCustomer:
		return to == enums.OrderStatusCancelled &&
			(from == enums.OrderStatusPending || from == enums.OrderStatusConfirmed)
	case enums.TransitionSourcePaymentConfirmation:
		return from == enums.OrderStatusPending &&
			(to == enums.OrderStatusConfirmed || to == enums.OrderStatusCancelled)
	case enums.TransitionSourceExpirationSweeper:
		return from == enums.OrderStatusPending && to == enums.OrderStatusAbandoned
	default:
		// checkout only ever creates pending orders
		return false
	}
}

func invalidTransition(from, to enums.OrderStatus, source enums.TransitionSource, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).WithDetails(map[string]any{
		"from":   from,
		"to":     to,
		"source": source,
	})
}
