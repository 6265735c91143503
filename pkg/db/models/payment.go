package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// Payment records one attempt to pay an order through the gateway.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	GatewayRef      *string             `gorm:"column:gateway_ref;uniqueIndex:ux_payments_gateway_ref"`
	IntentID        *string             `gorm:"column:intent_id"`
	GatewayOrderRef *string             `gorm:"column:gateway_order_ref;index"`
	ReviewRequired  bool                `gorm:"column:review_required;not null"`
	ReviewReason    *string             `gorm:"column:review_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	SettledAt       *time.Time          `gorm:"column:settled_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
