package square

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkLine is one priced line of a hosted checkout.
type PaymentLinkLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Note      string
}

// PaymentLinkParams describes a hosted checkout for a single Fresaterra order.
type PaymentLinkParams struct {
	ReferenceID    string
	Description    string
	Lines          []PaymentLinkLine
	RedirectURL    string
	BuyerEmail     string
	IdempotencyKey string
}

// PaymentLink is the subset of the Square payment link the checkout flow persists.
type PaymentLink struct {
	ID      string
	URL     string
	OrderID string
}

func (p PaymentLinkParams) validate() error {
	if strings.TrimSpace(p.ReferenceID) == "" {
		return errors.New("reference id is required")
	}
	if len(p.Lines) == 0 {
		return errors.New("at least one line is required")
	}
	for i, line := range p.Lines {
		if strings.TrimSpace(line.Name) == "" {
			return fmt.Errorf("line %d: name is required", i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("line %d: quantity must be positive", i)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("line %d: unit price must not be negative", i)
		}
	}
	return nil
}

func (p PaymentLinkParams) toSquareRequest(idempotencyKey, locationID string, currency sq.Currency) *sqcheckout.CreatePaymentLinkRequest {
	order := &sq.Order{
		LocationID:  locationID,
		ReferenceID: ptrString(strings.TrimSpace(p.ReferenceID)),
		LineItems:   make([]*sq.OrderLineItem, 0, len(p.Lines)),
	}
	for _, line := range p.Lines {
		item := &sq.OrderLineItem{
			Name:           ptrString(strings.TrimSpace(line.Name)),
			Quantity:       strconv.Itoa(line.Quantity),
			BasePriceMoney: moneyPtr(MinorUnits(line.UnitPrice), currency),
		}
		if note := strings.TrimSpace(line.Note); note != "" {
			item.Note = ptrString(note)
		}
		order.LineItems = append(order.LineItems, item)
	}

	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		req.Description = ptrString(desc)
	}
	if redirect := strings.TrimSpace(p.RedirectURL); redirect != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(redirect)}
	}
	if email := strings.TrimSpace(p.BuyerEmail); email != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{BuyerEmail: ptrString(email)}
	}
	return req
}

// MinorUnits converts a decimal amount into the smallest currency unit Square expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func moneyPtr(amount int64, currency sq.Currency) *sq.Money {
	cur := currency
	return &sq.Money{
		Amount:   &amount,
		Currency: &cur,
	}
}

func ptrString(value string) *string {
	return &value
}
