package shipments

import (
	"github.com/shopspring/decimal"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
)

// CostPolicy prices the delivery of an order from its merchandise total.
type CostPolicy interface {
	Cost(total decimal.Decimal) decimal.Decimal
}

// FlatRatePolicy ships free at or above FreeThreshold and charges FlatFee otherwise.
type FlatRatePolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// NewFlatRatePolicy reads the policy amounts from configuration.
func NewFlatRatePolicy(cfg config.ShippingConfig) FlatRatePolicy {
	return FlatRatePolicy{FreeThreshold: cfg.Threshold(), FlatFee: cfg.Fee()}
}

func (p FlatRatePolicy) Cost(total decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}
