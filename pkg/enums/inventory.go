package enums

import "fmt"

// InventoryStatus maps to the inventory_status enum in Postgres.
type InventoryStatus string

const (
	InventoryStatusAvailable InventoryStatus = "available"
	InventoryStatusDepleted  InventoryStatus = "depleted"
)

// InventoryStatusFor returns the status matching an available quantity.
func InventoryStatusFor(available int) InventoryStatus {
	if available > 0 {
		return InventoryStatusAvailable
	}
	return InventoryStatusDepleted
}

// IsValid reports whether the value is a known InventoryStatus.
func (s InventoryStatus) IsValid() bool {
	return s == InventoryStatusAvailable || s == InventoryStatusDepleted
}

// InventoryMovementReason explains an entry of the inventory movement log.
type InventoryMovementReason string

const (
	MovementPaymentConfirmed InventoryMovementReason = "payment_confirmed"
	MovementOrderCancelled   InventoryMovementReason = "order_cancelled"
	MovementRestock          InventoryMovementReason = "restock"
)

var validMovementReasons = []InventoryMovementReason{
	MovementPaymentConfirmed,
	MovementOrderCancelled,
	MovementRestock,
}

// IsValid reports whether the value is a known InventoryMovementReason.
func (r InventoryMovementReason) IsValid() bool {
	for _, candidate := range validMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseInventoryMovementReason converts raw input into an InventoryMovementReason.
func ParseInventoryMovementReason(value string) (InventoryMovementReason, error) {
	for _, candidate := range validMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory movement reason %q", value)
}
