package checkout

import (
	"context"
	"fmt"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/square"
)

type paymentLinkCreator interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error)
}

// SquareIntents opens Square hosted payment links. The Square order carries
// the Fresaterra order id as its reference id so webhooks can find it again.
type SquareIntents struct {
	client paymentLinkCreator
}

func NewSquareIntents(client paymentLinkCreator) (*SquareIntents, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareIntents{client: client}, nil
}

func (s *SquareIntents) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	lines := make([]square.PaymentLinkLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, square.PaymentLinkLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	link, err := s.client.CreatePaymentLink(ctx, square.PaymentLinkParams{
		ReferenceID:    req.OrderID.String(),
		Description:    fmt.Sprintf("Fresaterra order %s", req.OrderID),
		Lines:          lines,
		RedirectURL:    req.ReturnURLs.Success,
		BuyerEmail:     req.BuyerEmail,
		IdempotencyKey: "payment-" + req.PaymentID.String(),
	})
	if err != nil {
		return Intent{}, err
	}
	return Intent{
		IntentID:        link.ID,
		RedirectURL:     link.URL,
		GatewayOrderRef: link.OrderID,
	}, nil
}
