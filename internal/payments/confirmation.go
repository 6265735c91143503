package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
)

// ReviewReasonInsufficientStock marks payments captured for stock we no longer have.
const ReviewReasonInsufficientStock = "insufficient_stock"

// ReviewReasonApprovedAfterSettlement marks orders whose gateway approved a
// charge after their payment was already closed.
const ReviewReasonApprovedAfterSettlement = "approved_after_settlement"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv inventory.Movement) (*models.InventoryRecord, error)
}

type shipmentCreator interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, bool, error)
}

type notificationSender interface {
	Send(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload)
}

// GatewayNotification is a normalized payment outcome reported by the gateway.
type GatewayNotification struct {
	GatewayPaymentID  string
	Status            enums.GatewayPaymentStatus
	ExternalReference string
	MerchantOrderID   string
	IdempotencyKey    string
}

func (n GatewayNotification) validate() error {
	if strings.TrimSpace(n.GatewayPaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id required")
	}
	if !n.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid gateway status %q", n.Status))
	}
	if strings.TrimSpace(n.ExternalReference) == "" && strings.TrimSpace(n.MerchantOrderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external reference or merchant order id required")
	}
	return nil
}

// ConfirmationResult reports the state left behind by a confirmation.
type ConfirmationResult struct {
	OrderID          uuid.UUID           `json:"order_id"`
	PaymentID        uuid.UUID           `json:"payment_id"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	OrderStatus      enums.OrderStatus   `json:"order_status"`
	ShipmentID       *uuid.UUID          `json:"shipment_id,omitempty"`
	AlreadyProcessed bool                `json:"already_processed"`
}

// ConfirmationService applies gateway payment outcomes to orders.
type ConfirmationService interface {
	ConfirmPayment(ctx context.Context, n GatewayNotification) (ConfirmationResult, error)
}

// ConfirmationParams carries the confirmation workflow dependencies.
type ConfirmationParams struct {
	Tx        txRunner
	Orders    orders.Repository
	Payments  Repository
	Stock     stockDecrementer
	Shipments shipmentCreator
	Outbox    outbox.Emitter
	Notifier  notificationSender
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type confirmationService struct {
	tx        txRunner
	orders    orders.Repository
	payments  Repository
	stock     stockDecrementer
	shipments shipmentCreator
	outbox    outbox.Emitter
	notifier  notificationSender
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewConfirmationService validates and wires the confirmation workflow.
func NewConfirmationService(p ConfirmationParams) (ConfirmationService, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case p.Stock == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case p.Shipments == nil:
		return nil, fmt.Errorf("shipments service required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &confirmationService{
		tx:        p.Tx,
		orders:    p.Orders,
		payments:  p.Payments,
		stock:     p.Stock,
		shipments: p.Shipments,
		outbox:    p.Outbox,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
		logg:      p.Logger,
		now:       now,
	}, nil
}

// confirmation carries what the committed unit of work needs to report.
type confirmation struct {
	result   ConfirmationResult
	order    *models.Order
	outcome  string
	shipment *models.Shipment
	created  bool
}

// ConfirmPayment settles the order's pending payment from a gateway outcome in
// one transaction. Re-deliveries of an outcome already applied are no-ops.
func (s *confirmationService) ConfirmPayment(ctx context.Context, n GatewayNotification) (ConfirmationResult, error) {
	if err := n.validate(); err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeError)
		return ConfirmationResult{}, err
	}
	n.GatewayPaymentID = strings.TrimSpace(n.GatewayPaymentID)
	ctx = s.logContext(ctx, n)

	var (
		resolvedOrder uuid.UUID
		out           confirmation
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.resolveOrder(ctx, tx, n)
		if err != nil {
			return err
		}
		resolvedOrder = order.ID
		out, err = s.apply(ctx, tx, order, n)
		return err
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) && resolvedOrder != uuid.Nil {
			s.flagForReview(ctx, resolvedOrder)
			s.metrics.IncConfirmation(metrics.OutcomeInsufficientStock)
		} else {
			s.metrics.IncConfirmation(metrics.OutcomeError)
		}
		return ConfirmationResult{}, err
	}

	s.metrics.IncConfirmation(out.outcome)
	if out.created && out.shipment != nil {
		s.metrics.IncShipment(out.shipment.CarrierSnapshot.Fallback)
	}
	s.notify(ctx, out)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":       out.result.OrderID.String(),
			"payment_status": out.result.PaymentStatus,
			"order_status":   out.result.OrderStatus,
			"outcome":        out.outcome,
		}), "payment notification applied")
	}
	return out.result, nil
}

func (s *confirmationService) resolveOrder(ctx context.Context, tx *gorm.DB, n GatewayNotification) (*models.Order, error) {
	orderRepo := s.orders.WithTx(tx)
	ref := strings.TrimSpace(n.ExternalReference)
	if id, err := uuid.Parse(ref); err == nil {
		return orderRepo.FindByIDForUpdate(ctx, id)
	}

	paymentRepo := s.payments.WithTx(tx)
	for _, candidate := range []string{strings.TrimSpace(n.MerchantOrderID), ref} {
		if candidate == "" {
			continue
		}
		payment, err := paymentRepo.FindByGatewayOrderRef(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			return orderRepo.FindByIDForUpdate(ctx, payment.OrderID)
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"external_reference": ref, "merchant_order_id": n.MerchantOrderID})
}

func (s *confirmationService) apply(ctx context.Context, tx *gorm.DB, order *models.Order, n GatewayNotification) (confirmation, error) {
	paymentRepo := s.payments.WithTx(tx)

	handled, err := paymentRepo.FindByGatewayRef(ctx, order.ID, n.GatewayPaymentID)
	if err != nil {
		return confirmation{}, err
	}
	if handled != nil && handled.Status.IsTerminal() {
		return s.alreadyProcessed(order, handled), nil
	}

	pending, err := paymentRepo.FindPendingForUpdate(ctx, order.ID)
	if err != nil {
		return confirmation{}, err
	}
	if pending == nil {
		settled, err := paymentRepo.LatestSettled(ctx, order.ID)
		if err != nil {
			return confirmation{}, err
		}
		if settled != nil {
			if err := s.reviewLateApproval(ctx, paymentRepo, settled, n); err != nil {
				return confirmation{}, err
			}
			return s.alreadyProcessed(order, nil), nil
		}
		return confirmation{}, pkgerrors.New(pkgerrors.CodeNoPendingPayment, "order has no pending payment").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	target, changes := n.Status.PaymentStatus()
	if !changes {
		return confirmation{
			result: ConfirmationResult{
				OrderID:       order.ID,
				PaymentID:     pending.ID,
				PaymentStatus: pending.Status,
				OrderStatus:   order.Status,
			},
			order:   order,
			outcome: metrics.OutcomePending,
		}, nil
	}

	switch target {
	case enums.PaymentStatusCompleted:
		return s.complete(ctx, tx, order, pending, n)
	default:
		return s.fail(ctx, tx, order, pending, n)
	}
}

func (s *confirmationService) complete(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, n GatewayNotification) (confirmation, error) {
	if err := orders.ValidateTransition(order.Status, enums.OrderStatusConfirmed, enums.TransitionSourcePaymentConfirmation); err != nil {
		return confirmation{}, err
	}
	now := s.now().UTC()
	if err := s.payments.WithTx(tx).TransitionPending(ctx, payment.ID, enums.PaymentStatusCompleted, n.GatewayPaymentID, now); err != nil {
		return confirmation{}, err
	}
	if err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusConfirmed, now); err != nil {
		return confirmation{}, err
	}
	order.Status = enums.OrderStatusConfirmed
	order.ConfirmedAt = &now

	for _, item := range inventory.InLockOrder(order.LineItems) {
		mv := inventory.Movement{OrderID: &order.ID, Reason: enums.MovementPaymentConfirmed}
		if _, err := s.stock.Decrement(ctx, tx, item.ProductID, item.Quantity, mv); err != nil {
			return confirmation{}, err
		}
	}

	shipment, created, err := s.shipments.CreateForOrder(ctx, tx, order)
	if err != nil {
		return confirmation{}, err
	}

	err = s.emit(ctx, tx, enums.EventOrderConfirmed, enums.AggregateOrder, order.ID, payloads.OrderConfirmedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		PaymentID:   payment.ID,
		GatewayRef:  n.GatewayPaymentID,
		ShipmentID:  &shipment.ID,
		ConfirmedAt: now,
	})
	if err != nil {
		return confirmation{}, err
	}

	return confirmation{
		result: ConfirmationResult{
			OrderID:       order.ID,
			PaymentID:     payment.ID,
			PaymentStatus: enums.PaymentStatusCompleted,
			OrderStatus:   enums.OrderStatusConfirmed,
			ShipmentID:    &shipment.ID,
		},
		order:    order,
		outcome:  metrics.OutcomeConfirmed,
		shipment: shipment,
		created:  created,
	}, nil
}

func (s *confirmationService) fail(ctx context.Context, tx *gorm.DB, order *models.Order, payment *models.Payment, n GatewayNotification) (confirmation, error) {
	if err := orders.ValidateTransition(order.Status, enums.OrderStatusCancelled, enums.TransitionSourcePaymentConfirmation); err != nil {
		return confirmation{}, err
	}
	now := s.now().UTC()
	if err := s.payments.WithTx(tx).TransitionPending(ctx, payment.ID, enums.PaymentStatusFailed, n.GatewayPaymentID, now); err != nil {
		return confirmation{}, err
	}
	previous := order.Status
	if err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, previous, enums.OrderStatusCancelled, now); err != nil {
		return confirmation{}, err
	}
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now

	err := s.emit(ctx, tx, enums.EventPaymentFailed, enums.AggregatePayment, payment.ID, payloads.PaymentFailedEvent{
		OrderID:       order.ID,
		PaymentID:     payment.ID,
		GatewayRef:    n.GatewayPaymentID,
		GatewayStatus: n.Status,
	})
	if err != nil {
		return confirmation{}, err
	}
	err = s.emit(ctx, tx, enums.EventOrderCancelled, enums.AggregateOrder, order.ID, payloads.OrderCancelledEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		PreviousStatus: previous,
		Source:         enums.TransitionSourcePaymentConfirmation,
		CancelledAt:    now,
		Reason:         string(n.Status),
	})
	if err != nil {
		return confirmation{}, err
	}

	return confirmation{
		result: ConfirmationResult{
			OrderID:       order.ID,
			PaymentID:     payment.ID,
			PaymentStatus: enums.PaymentStatusFailed,
			OrderStatus:   enums.OrderStatusCancelled,
		},
		order:   order,
		outcome: metrics.OutcomeFailed,
	}, nil
}

func (s *confirmationService) alreadyProcessed(order *models.Order, payment *models.Payment) confirmation {
	result := ConfirmationResult{
		OrderID:          order.ID,
		OrderStatus:      order.Status,
		AlreadyProcessed: true,
	}
	if payment != nil {
		result.PaymentID = payment.ID
		result.PaymentStatus = payment.Status
	}
	return confirmation{result: result, order: order, outcome: metrics.OutcomeAlreadyProcessed}
}

// reviewLateApproval flags a money capture that arrived after the order's
// payment closed without one; someone has to refund it by hand.
func (s *confirmationService) reviewLateApproval(ctx context.Context, repo Repository, settled *models.Payment, n GatewayNotification) error {
	if n.Status != enums.GatewayStatusApproved || settled.Status == enums.PaymentStatusCompleted {
		return nil
	}
	if settled.GatewayRef != nil && *settled.GatewayRef == n.GatewayPaymentID {
		return nil
	}
	if err := repo.FlagSettledForReview(ctx, settled.ID, ReviewReasonApprovedAfterSettlement); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id":           settled.OrderID.String(),
			"payment_id":         settled.ID.String(),
			"payment_status":     string(settled.Status),
			"gateway_payment_id": n.GatewayPaymentID,
		}), "approved notification for an order whose payment already closed")
	}
	return nil
}

// flagForReview runs after the confirmation rolled back so the flag survives.
func (s *confirmationService) flagForReview(ctx context.Context, orderID uuid.UUID) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		pending, err := repo.FindPendingForUpdate(ctx, orderID)
		if err != nil || pending == nil {
			return err
		}
		_, err = repo.FlagForReview(ctx, pending.ID, ReviewReasonInsufficientStock)
		return err
	})
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	if err != nil {
		s.logg.Error(logCtx, "flag payment for review", err)
		return
	}
	s.logg.Warn(logCtx, "payment captured without stock, flagged for manual review")
}

func (s *confirmationService) notify(ctx context.Context, out confirmation) {
	if out.order == nil || out.result.AlreadyProcessed {
		return
	}
	short := out.order.ID.String()[:8]
	switch out.outcome {
	case metrics.OutcomeConfirmed:
		s.notifier.Send(ctx, out.order.UserID, enums.NotificationTypeOrderConfirmed, notifications.Payload{
			OrderID: &out.order.ID,
			Message: fmt.Sprintf("Payment received. Order %s is confirmed.", short),
		})
	case metrics.OutcomeFailed:
		s.notifier.Send(ctx, out.order.UserID, enums.NotificationTypePaymentFailed, notifications.Payload{
			OrderID: &out.order.ID,
			Message: fmt.Sprintf("Payment for order %s did not go through and the order was cancelled.", short),
		})
	}
}

func (s *confirmationService) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, id uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{Role: string(enums.TransitionSourcePaymentConfirmation)},
		Data:          data,
		Version:       1,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *confirmationService) logContext(ctx context.Context, n GatewayNotification) context.Context {
	if s.logg == nil {
		return ctx
	}
	fields := map[string]any{
		"gateway_payment_id": n.GatewayPaymentID,
		"gateway_status":     n.Status,
	}
	if n.IdempotencyKey != "" {
		fields["idempotency_key"] = n.IdempotencyKey
	}
	return s.logg.WithFields(ctx, fields)
}
