package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Confirmation outcomes.
const (
	OutcomeConfirmed         = "confirmed"
	OutcomeFailed            = "failed"
	OutcomePending           = "pending"
	OutcomeAlreadyProcessed  = "already_processed"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeError             = "error"
)

// OrderMetrics tracks payment confirmations and order expirations.
type OrderMetrics struct {
	confirmations *prometheus.CounterVec
	abandoned     prometheus.Counter
	shipments     *prometheus.CounterVec
}

// NewOrderMetrics registers the order workflow metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_confirmations_total",
		Help:      "Payment confirmation attempts by outcome.",
	}, []string{"outcome"})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_abandoned_total",
		Help:      "Pending orders abandoned by the expiration sweeper.",
	})
	shipments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipments_created_total",
		Help:      "Shipments created, labelled by whether the fallback carrier was used.",
	}, []string{"fallback"})
	reg.MustRegister(confirmations, abandoned, shipments)
	return &OrderMetrics{
		confirmations: confirmations,
		abandoned:     abandoned,
		shipments:     shipments,
	}
}

// IncConfirmation counts one confirmation attempt with the given outcome.
func (m *OrderMetrics) IncConfirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddAbandoned counts orders moved to abandoned by one sweep.
func (m *OrderMetrics) AddAbandoned(n int) {
	if m == nil || m.abandoned == nil || n <= 0 {
		return
	}
	m.abandoned.Add(float64(n))
}

// IncShipment counts a created shipment.
func (m *OrderMetrics) IncShipment(fallback bool) {
	if m == nil || m.shipments == nil {
		return
	}
	label := "false"
	if fallback {
		label = "true"
	}
	m.shipments.WithLabelValues(label).Inc()
}
