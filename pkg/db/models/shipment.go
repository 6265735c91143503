package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/types"
)

// Shipment is created once per order when the order is first confirmed.
type Shipment struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_shipments_order"`
	CarrierID       uuid.UUID             `gorm:"column:carrier_id;type:uuid;not null"`
	Cost            decimal.Decimal       `gorm:"column:cost;type:numeric(12,2);not null"`
	Status          enums.ShipmentStatus  `gorm:"column:status;type:shipment_status;not null"`
	ScheduledAt     time.Time             `gorm:"column:scheduled_at;not null"`
	AddressSnapshot types.AddressSnapshot `gorm:"column:address_snapshot;type:jsonb;not null"`
	CarrierSnapshot types.CarrierSnapshot `gorm:"column:carrier_snapshot;type:jsonb;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
