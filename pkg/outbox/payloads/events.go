package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// OrderCreatedEvent signals a checkout produced a pending order.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// OrderConfirmedEvent is emitted when an approved payment confirms an order.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	UserID      uuid.UUID  `json:"user_id"`
	PaymentID   uuid.UUID  `json:"payment_id"`
	GatewayRef  string     `json:"gateway_ref"`
	ShipmentID  *uuid.UUID `json:"shipment_id,omitempty"`
	ConfirmedAt time.Time  `json:"confirmed_at"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID              `json:"order_id"`
	UserID         uuid.UUID              `json:"user_id"`
	PreviousStatus enums.OrderStatus      `json:"previous_status"`
	Source         enums.TransitionSource `json:"source"`
	StockRestored  bool                   `json:"stock_restored"`
	CancelledAt    time.Time              `json:"cancelled_at"`
	Reason         string                 `json:"reason,omitempty"`
}

// OrderAbandonedEvent describes an order expired by the sweeper.
type OrderAbandonedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	UserID      uuid.UUID   `json:"user_id"`
	PaymentIDs  []uuid.UUID `json:"payment_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	AbandonedAt time.Time   `json:"abandoned_at"`
}

// OrderStatusChangedEvent covers the remaining lifecycle moves.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID              `json:"order_id"`
	UserID  uuid.UUID              `json:"user_id"`
	From    enums.OrderStatus      `json:"from"`
	To      enums.OrderStatus      `json:"to"`
	Source  enums.TransitionSource `json:"source"`
}

// PaymentFailedEvent reports a rejected or cancelled gateway payment.
type PaymentFailedEvent struct {
	OrderID       uuid.UUID                  `json:"order_id"`
	PaymentID     uuid.UUID                  `json:"payment_id"`
	GatewayRef    string                     `json:"gateway_ref"`
	GatewayStatus enums.GatewayPaymentStatus `json:"gateway_status"`
}

// ShipmentCreatedEvent is emitted once per order when its shipment is scheduled.
type ShipmentCreatedEvent struct {
	ShipmentID  uuid.UUID       `json:"shipment_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	CarrierID   uuid.UUID       `json:"carrier_id"`
	Cost        decimal.Decimal `json:"cost"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Fallback    bool            `json:"fallback_carrier"`
}

// InventoryRestockedEvent is emitted by manual restocks.
type InventoryRestockedEvent struct {
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int       `json:"quantity"`
	BalanceAfter int       `json:"balance_after"`
}
