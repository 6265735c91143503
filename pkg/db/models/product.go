package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog entry a line item snapshots at checkout.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	ImageURL    *string          `gorm:"column:image_url"`
	WeightGrams int              `gorm:"column:weight_grams;not null"`
	Category    string           `gorm:"column:category;not null"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive    bool             `gorm:"column:is_active;not null"`
	Inventory   *InventoryRecord `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
