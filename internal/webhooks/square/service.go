package squarewebhook

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/payments"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/square"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

type ServiceParams struct {
	Confirmations payments.ConfirmationService
	// Payments re-reads payments whose webhook arrived without a status.
	Payments paymentFetcher
	Logger   *logger.Logger
}

// Service turns Square payment notifications into payment confirmations.
type Service struct {
	confirmations payments.ConfirmationService
	payments      paymentFetcher
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Confirmations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "confirmation service required")
	}
	return &Service{
		confirmations: params.Confirmations,
		payments:      params.Payments,
		logg:          params.Logger,
	}, nil
}

// HandleEvent applies a payment event. Events that carry no payment outcome
// return a nil result.
func (s *Service) HandleEvent(ctx context.Context, event *square.WebhookEvent) (*payments.ConfirmationResult, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	if !event.IsPaymentEvent() {
		s.logIgnored(ctx, event, "unsupported event type")
		return nil, nil
	}

	payment := event.Data.Object.Payment
	if payment.GetStatus() == nil && s.payments != nil && payment.GetID() != nil {
		fresh, err := s.payments.GetPayment(ctx, *payment.GetID())
		if err != nil {
			return nil, err
		}
		payment = fresh
	}

	notification, ok, err := NotificationFromPayment(payment, event.EventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logIgnored(ctx, event, "payment status carries no outcome")
		return nil, nil
	}

	result, err := s.confirmations.ConfirmPayment(ctx, notification)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// NotificationFromPayment maps a Square payment onto a gateway notification.
// ok is false for statuses that never settle a payment.
func NotificationFromPayment(payment *sq.Payment, eventID string) (payments.GatewayNotification, bool, error) {
	if payment == nil {
		return payments.GatewayNotification{}, false, pkgerrors.New(pkgerrors.CodeValidation, "payment object required")
	}
	id := strings.TrimSpace(deref(payment.GetID()))
	if id == "" {
		return payments.GatewayNotification{}, false, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	status, ok := GatewayStatus(deref(payment.GetStatus()))
	if !ok {
		return payments.GatewayNotification{}, false, nil
	}
	return payments.GatewayNotification{
		GatewayPaymentID:  id,
		Status:            status,
		ExternalReference: strings.TrimSpace(deref(payment.GetReferenceID())),
		MerchantOrderID:   strings.TrimSpace(deref(payment.GetOrderID())),
		IdempotencyKey:    eventID,
	}, true, nil
}

// GatewayStatus maps Square's payment status vocabulary.
func GatewayStatus(raw string) (enums.GatewayPaymentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVED", "COMPLETED":
		return enums.GatewayStatusApproved, true
	case "PENDING":
		return enums.GatewayStatusPending, true
	case "FAILED":
		return enums.GatewayStatusRejected, true
	case "CANCELED":
		return enums.GatewayStatusCancelled, true
	default:
		return "", false
	}
}

func (s *Service) logIgnored(ctx context.Context, event *square.WebhookEvent, reason string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.EventID,
		"event_type": event.Type,
	})
	s.logg.Info(ctx, fmt.Sprintf("square webhook ignored: %s", reason))
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
