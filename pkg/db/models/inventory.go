package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// InventoryRecord is the single authoritative stock row of a product.
type InventoryRecord struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID             `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_inventory_records_product"`
	AvailableQty int                   `gorm:"column:available_qty;not null;check:chk_inventory_available_non_negative,available_qty >= 0"`
	Status       enums.InventoryStatus `gorm:"column:status;type:inventory_status;not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *InventoryRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	if r.Status == "" {
		r.Status = enums.InventoryStatusFor(r.AvailableQty)
	}
	return nil
}

// InventoryMovement is an append-only entry of the stock change log.
type InventoryMovement struct {
	ID           uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID                     `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID      *uuid.UUID                    `gorm:"column:order_id;type:uuid;index"`
	Delta        int                           `gorm:"column:delta;not null"`
	BalanceAfter int                           `gorm:"column:balance_after;not null"`
	Reason       enums.InventoryMovementReason `gorm:"column:reason;type:inventory_movement_reason;not null"`
	CreatedAt    time.Time                     `gorm:"column:created_at;autoCreateTime"`
}

func (m *InventoryMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
