package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusEnRoute   OrderStatus = "en_route"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusAbandoned OrderStatus = "abandoned"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusEnRoute,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusAbandoned,
}

// orderTransitions lists every legal edge; statuses without entries are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusAbandoned},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusEnRoute, OrderStatusCancelled},
	OrderStatusEnRoute:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: nil,
	OrderStatusCancelled: nil,
	OrderStatusAbandoned: nil,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether from -> to is an edge of the order lifecycle.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextOrderStatuses returns a copy of the statuses reachable from s.
func NextOrderStatuses(s OrderStatus) []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
