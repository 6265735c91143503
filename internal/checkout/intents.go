package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnURLs are the pages the gateway sends the buyer back to.
type ReturnURLs struct {
	Success string
	Failure string
	Pending string
}

// IntentItem is one priced line handed to the gateway.
type IntentItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// IntentRequest asks the gateway to open a payment for an order.
type IntentRequest struct {
	OrderID    uuid.UUID
	PaymentID  uuid.UUID
	Items      []IntentItem
	ReturnURLs ReturnURLs
	BuyerEmail string
}

// Intent is the gateway's handle for the payment the buyer is redirected to.
type Intent struct {
	IntentID        string
	RedirectURL     string
	GatewayOrderRef string
}

// IntentProvider opens gateway payments.
type IntentProvider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}
