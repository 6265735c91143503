package enums

import (
	"fmt"
	"strings"
)

// GatewayPaymentStatus is the normalized status reported by the payment gateway.
type GatewayPaymentStatus string

const (
	GatewayStatusApproved  GatewayPaymentStatus = "approved"
	GatewayStatusPending   GatewayPaymentStatus = "pending"
	GatewayStatusRejected  GatewayPaymentStatus = "rejected"
	GatewayStatusCancelled GatewayPaymentStatus = "cancelled"
)

var validGatewayStatuses = []GatewayPaymentStatus{
	GatewayStatusApproved,
	GatewayStatusPending,
	GatewayStatusRejected,
	GatewayStatusCancelled,
}

// IsValid reports whether the value is a known GatewayPaymentStatus.
func (g GatewayPaymentStatus) IsValid() bool {
	for _, candidate := range validGatewayStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// PaymentStatus maps the gateway outcome onto the local payment lifecycle.
// The boolean is false when the outcome requires no state change.
func (g GatewayPaymentStatus) PaymentStatus() (PaymentStatus, bool) {
	switch g {
	case GatewayStatusApproved:
		return PaymentStatusCompleted, true
	case GatewayStatusRejected, GatewayStatusCancelled:
		return PaymentStatusFailed, true
	default:
		return PaymentStatusPending, false
	}
}

// ParseGatewayPaymentStatus converts raw input into a GatewayPaymentStatus.
func ParseGatewayPaymentStatus(value string) (GatewayPaymentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGatewayStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway payment status %q", value)
}
