package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineItem snapshots the product as it was sold; it is never updated.
type OrderLineItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity           int             `gorm:"column:quantity;not null;check:chk_line_items_quantity_positive,quantity > 0"`
	UnitPrice          decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal           decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ProductName        string          `gorm:"column:product_name;not null"`
	ProductDescription *string         `gorm:"column:product_description"`
	ImageURL           *string         `gorm:"column:image_url"`
	WeightGrams        int             `gorm:"column:weight_grams;not null"`
	Category           string          `gorm:"column:category;not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (li *OrderLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&li.ID)
	return nil
}
