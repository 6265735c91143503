package models

// All lists every table the application owns, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Product{},
		&InventoryRecord{},
		&InventoryMovement{},
		&Order{},
		&OrderLineItem{},
		&Payment{},
		&Carrier{},
		&CarrierCursor{},
		&Shipment{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
