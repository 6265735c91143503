package square

import (
	"encoding/json"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
)

var (
	errWebhookBodyEmpty = errors.New("square webhook body is empty")
	errSignatureMissing = errors.New("square webhook signature missing")
)

// SignatureHeader carries the HMAC-SHA256 signature of a Square notification.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

const (
	EventPaymentCreated = "payment.created"
	EventPaymentUpdated = "payment.updated"
)

// WebhookEvent is the envelope Square posts to the notification URL.
type WebhookEvent struct {
	MerchantID string      `json:"merchant_id"`
	Type       string      `json:"type"`
	EventID    string      `json:"event_id"`
	CreatedAt  string      `json:"created_at"`
	Data       WebhookData `json:"data"`
}

type WebhookData struct {
	Type   string        `json:"type"`
	ID     string        `json:"id"`
	Object WebhookObject `json:"object"`
}

type WebhookObject struct {
	Payment *sq.Payment `json:"payment,omitempty"`
}

// IsPaymentEvent reports whether the event carries a payment object.
func (e WebhookEvent) IsPaymentEvent() bool {
	return (e.Type == EventPaymentCreated || e.Type == EventPaymentUpdated) && e.Data.Object.Payment != nil
}

// ParseWebhookEvent decodes a notification body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty webhook body")
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.EventID) == "" {
		return nil, errors.New("webhook event id missing")
	}
	if strings.TrimSpace(event.Type) == "" {
		return nil, errors.New("webhook event type missing")
	}
	return &event, nil
}
