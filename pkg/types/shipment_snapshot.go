package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AddressSnapshot freezes the destination of a shipment at creation time.
type AddressSnapshot struct {
	AddressID     uuid.UUID `json:"address_id"`
	RecipientName string    `json:"recipient_name"`
	Phone         *string   `json:"phone,omitempty"`
	Line1         string    `json:"line1"`
	Line2         *string   `json:"line2,omitempty"`
	City          string    `json:"city"`
	Region        string    `json:"region"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	Reference     *string   `json:"reference,omitempty"`
}

// Value serializes the snapshot to JSON.
func (a AddressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan decodes JSONB into the snapshot.
func (a *AddressSnapshot) Scan(value interface{}) error {
	if value == nil {
		*a = AddressSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

// CarrierSnapshot freezes the carrier contact info assigned to a shipment.
type CarrierSnapshot struct {
	CarrierID   uuid.UUID `json:"carrier_id"`
	Name        string    `json:"name"`
	ContactName *string   `json:"contact_name,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
}

// Value serializes the snapshot to JSON.
func (c CarrierSnapshot) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan decodes JSONB into the snapshot.
func (c *CarrierSnapshot) Scan(value interface{}) error {
	if value == nil {
		*c = CarrierSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("types: unsupported json scan type %T", value)
	}
}
