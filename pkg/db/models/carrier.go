package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Carrier is read-only reference data for shipment assignment.
type Carrier struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	ContactName *string   `gorm:"column:contact_name"`
	Phone       *string   `gorm:"column:phone"`
	Email       *string   `gorm:"column:email"`
	Position    int       `gorm:"column:position;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Carrier) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CarrierCursor is the durable round-robin counter for carrier assignment.
type CarrierCursor struct {
	Name        string    `gorm:"column:name;primaryKey"`
	Assignments int64     `gorm:"column:assignments;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
