package enums

import "fmt"

// TransitionSource identifies who drives an order status change.
type TransitionSource string

const (
	TransitionSourceAdmin               TransitionSource = "admin"
	TransitionSourceCheckout            TransitionSource = "checkout"
	TransitionSourcePaymentConfirmation TransitionSource = "payment_confirmation"
	TransitionSourceCustomer            TransitionSource = "customer"
	TransitionSourceExpirationSweeper   TransitionSource = "expiration_sweeper"
)

var validTransitionSources = []TransitionSource{
	TransitionSourceAdmin,
	TransitionSourceCheckout,
	TransitionSourcePaymentConfirmation,
	TransitionSourceCustomer,
	TransitionSourceExpirationSweeper,
}

// String implements fmt.Stringer.
func (s TransitionSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransitionSource.
func (s TransitionSource) IsValid() bool {
	for _, candidate := range validTransitionSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransitionSource converts raw input into a TransitionSource.
func ParseTransitionSource(value string) (TransitionSource, error) {
	for _, candidate := range validTransitionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transition source %q", value)
}
