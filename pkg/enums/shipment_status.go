package enums

import "fmt"

// ShipmentStatus maps to the shipment_status enum in Postgres.
type ShipmentStatus string

const (
	ShipmentStatusScheduled ShipmentStatus = "scheduled"
	ShipmentStatusPreparing ShipmentStatus = "preparing"
	ShipmentStatusEnRoute   ShipmentStatus = "en_route"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusScheduled,
	ShipmentStatusPreparing,
	ShipmentStatusEnRoute,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ShipmentStatusForOrder derives the shipment status mirrored from an order
// status. ok is false for order statuses that carry no shipment.
func ShipmentStatusForOrder(status OrderStatus) (ShipmentStatus, bool) {
	switch status {
	case OrderStatusConfirmed:
		return ShipmentStatusScheduled, true
	case OrderStatusPreparing:
		return ShipmentStatusPreparing, true
	case OrderStatusEnRoute:
		return ShipmentStatusEnRoute, true
	case OrderStatusDelivered:
		return ShipmentStatusDelivered, true
	case OrderStatusCancelled:
		return ShipmentStatusCancelled, true
	default:
		return "", false
	}
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
