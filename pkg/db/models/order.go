package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// Order is the aggregate root of a customer purchase.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID   uuid.UUID         `gorm:"column:address_id;type:uuid;not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;index:ix_orders_status_created,priority:1"`
	LineItems   []OrderLineItem   `gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index:ix_orders_status_created,priority:2"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	ConfirmedAt *time.Time        `gorm:"column:confirmed_at"`
	CancelledAt *time.Time        `gorm:"column:cancelled_at"`
	AbandonedAt *time.Time        `gorm:"column:abandoned_at"`
	DeliveredAt *time.Time        `gorm:"column:delivered_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
