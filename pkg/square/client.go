package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationIDRequired  = errors.New("square location id is required")
	errSignatureKeyMissing = errors.New("square webhook signature key is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client exposes Square primitives with centralized auth, logging, idempotency, and error mapping.
type Client struct {
	sdk             *sqclient.Client
	accessToken     string
	environment     string
	locationID      string
	currency        sq.Currency
	signatureKey    string
	notificationURL string
	baseURL         string
	logger          *logger.Logger
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationIDRequired
	}

	signatureKey := strings.TrimSpace(cfg.WebhookSignatureKey)
	if signatureKey == "" {
		return nil, errSignatureKeyMissing
	}

	currency, err := sq.NewCurrencyFromString(strings.ToUpper(strings.TrimSpace(cfg.Currency)))
	if err != nil {
		return nil, fmt.Errorf("square currency: %w", err)
	}

	baseURL := baseURLs[env]
	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		sdk:             sdk,
		accessToken:     accessToken,
		environment:     env,
		locationID:      locationID,
		currency:        currency,
		signatureKey:    signatureKey,
		notificationURL: strings.TrimSpace(cfg.WebhookNotificationURL),
		baseURL:         baseURL,
		logger:          logg,
	}

	logg.Info(ctx, "square client initialized")
	return c, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// LocationID returns the Square location payments are collected for.
func (c *Client) LocationID() string {
	if c == nil {
		return ""
	}
	return c.locationID
}

// NewIdempotencyKey returns a unique key for Square operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "fresa"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// VerifyWebhook checks the x-square-hmacsha256-signature header against the configured key
// and notification URL using the SDK's webhook verifier.
func (c *Client) VerifyWebhook(ctx context.Context, body []byte, signature string) error {
	if c == nil || c.sdk == nil || c.sdk.Webhooks == nil {
		return errors.New("square client not configured")
	}
	// the SDK treats an empty body as trivially valid
	if len(body) == 0 {
		return errWebhookBodyEmpty
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errSignatureMissing
	}
	return c.sdk.Webhooks.VerifySignature(ctx, &sq.VerifySignatureRequest{
		RequestBody:     string(body),
		SignatureHeader: signature,
		SignatureKey:    c.signatureKey,
		NotificationURL: c.notificationURL,
	})
}

// CreatePaymentLink opens a hosted checkout for a Fresaterra order. The Square order
// carries the Fresaterra order id as its reference id.
func (c *Client) CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*PaymentLink, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment link params")
	}
	req := params.toSquareRequest(c.ensureIdempotencyKey("link", params.IdempotencyKey), c.locationID, c.currency)
	c.log(ctx, "request", "create_payment_link", map[string]any{
		"reference_id": params.ReferenceID,
		"line_count":   len(params.Lines),
		"location_id":  c.locationID,
	})

	resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_payment_link", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment link")
	}

	link := resp.GetPaymentLink()
	if link == nil || stringValue(link.GetURL()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned an empty payment link")
	}
	out := &PaymentLink{
		ID:      stringValue(link.GetID()),
		URL:     stringValue(link.GetURL()),
		OrderID: stringValue(link.GetOrderID()),
	}
	c.log(ctx, "response", "create_payment_link", map[string]any{
		"payment_link_id": out.ID,
		"square_order_id": out.OrderID,
	})
	return out, nil
}

// GetPayment fetches a payment, used to re-read the authoritative status of a webhook.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": paymentID})

	resp, err := c.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: paymentID})
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "get payment")
	}

	payment := resp.GetPayment()
	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	})
	return payment, nil
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "secret", "signature", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, sqErr := range c.extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeIdempotency
				break
			}
			if sqErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("square %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
}

func (c *Client) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
