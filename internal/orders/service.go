package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PendingPaymentCloser settles the pending payments of an order that leaves
// pending without a gateway outcome.
type PendingPaymentCloser interface {
	ClosePending(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.PaymentStatus, at time.Time) ([]uuid.UUID, error)
}

// StockRestorer returns units to inventory.
type StockRestorer interface {
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv inventory.Movement) (*models.InventoryRecord, error)
}

// ShipmentSyncer mirrors order status changes onto the order's shipment.
type ShipmentSyncer interface {
	SyncWithOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) error
}

type notificationSender interface {
	Send(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload)
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Service exposes order reads and the customer/admin driven transitions.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	AdminTransition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, adminID uuid.UUID) (*models.Order, error)
}

// ServiceParams carries the dependencies of the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Payments  PendingPaymentCloser
	Stock     StockRestorer
	Shipments ShipmentSyncer
	Notifier  notificationSender
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	payments  PendingPaymentCloser
	stock     StockRestorer
	shipments ShipmentSyncer
	notifier  notificationSender
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Payments == nil {
		return nil, fmt.Errorf("payment closer required")
	}
	if p.Stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if p.Shipments == nil {
		return nil, fmt.Errorf("shipment syncer required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      p.Repo,
		tx:        p.Tx,
		outbox:    p.Outbox,
		payments:  p.Payments,
		stock:     p.Stock,
		shipments: p.Shipments,
		notifier:  p.Notifier,
		logg:      p.Logger,
		now:       now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if err := validateActor(orderID, actor.UserID); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

// CancelOrder cancels an order on behalf of its owner (or an admin). Pending
// orders close their pending payments; confirmed-or-later orders get their
// stock back and their shipment cancelled.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if err := validateActor(orderID, actor.UserID); err != nil {
		return nil, err
	}
	source := enums.TransitionSourceCustomer
	if actor.isAdmin() {
		source = enums.TransitionSourceAdmin
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.isAdmin() && locked.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if err := ValidateTransition(locked.Status, enums.OrderStatusCancelled, source); err != nil {
			return err
		}
		if err := s.cancelTx(ctx, tx, locked, source, actor); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, order.ID, "order cancelled", map[string]any{"source": source})
	s.notifier.Send(ctx, order.UserID, enums.NotificationTypeOrderCancelled, notifications.Payload{
		OrderID: &order.ID,
		Message: fmt.Sprintf("Order %s was cancelled.", shortID(order.ID)),
	})
	return order, nil
}

// AdminTransition drives any legal edge except confirmation, which belongs to
// the payment workflow.
func (s *service) AdminTransition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, adminID uuid.UUID) (*models.Order, error) {
	if err := validateActor(orderID, adminID); err != nil {
		return nil, err
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", to))
	}
	if to == enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "orders are confirmed by payment only")
	}
	actor := Actor{UserID: adminID, Role: enums.UserRoleAdmin}
	source := enums.TransitionSourceAdmin

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(locked.Status, to, source); err != nil {
			return err
		}
		switch to {
		case enums.OrderStatusCancelled:
			err = s.cancelTx(ctx, tx, locked, source, actor)
		case enums.OrderStatusAbandoned:
			err = s.abandonTx(ctx, tx, locked, actor)
		default:
			err = s.advanceTx(ctx, tx, locked, to, actor)
		}
		if err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, order.ID, "order status changed by admin", map[string]any{"to": to, "admin_id": adminID.String()})
	kind := enums.NotificationTypeOrderStatusChanged
	switch to {
	case enums.OrderStatusCancelled:
		kind = enums.NotificationTypeOrderCancelled
	case enums.OrderStatusAbandoned:
		kind = enums.NotificationTypeOrderAbandoned
	}
	s.notifier.Send(ctx, order.UserID, kind, notifications.Payload{
		OrderID: &order.ID,
		Message: fmt.Sprintf("Order %s is now %s.", shortID(order.ID), order.Status),
	})
	return order, nil
}

func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, order *models.Order, source enums.TransitionSource, actor Actor) error {
	now := s.now().UTC()
	from := order.Status
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, enums.OrderStatusCancelled, now); err != nil {
		return err
	}

	restored := false
	if from == enums.OrderStatusPending {
		if _, err := s.payments.ClosePending(ctx, tx, order.ID, enums.PaymentStatusCancelled, now); err != nil {
			return err
		}
	} else {
		for _, item := range inventory.InLockOrder(order.LineItems) {
			mv := inventory.Movement{OrderID: &order.ID, Reason: enums.MovementOrderCancelled}
			if _, err := s.stock.Increment(ctx, tx, item.ProductID, item.Quantity, mv); err != nil {
				return err
			}
		}
		restored = len(order.LineItems) > 0
		if err := s.shipments.SyncWithOrder(ctx, tx, order.ID, enums.OrderStatusCancelled); err != nil {
			return err
		}
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now
	return s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, actor, payloads.OrderCancelledEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		PreviousStatus: from,
		Source:         source,
		StockRestored:  restored,
		CancelledAt:    now,
	})
}

func (s *service) abandonTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor) error {
	now := s.now().UTC()
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusAbandoned, now); err != nil {
		return err
	}
	paymentIDs, err := s.payments.ClosePending(ctx, tx, order.ID, enums.PaymentStatusAbandoned, now)
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusAbandoned
	order.AbandonedAt = &now
	order.UpdatedAt = now
	return s.emit(ctx, tx, enums.EventOrderAbandoned, order.ID, actor, payloads.OrderAbandonedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		PaymentIDs:  paymentIDs,
		CreatedAt:   order.CreatedAt,
		AbandonedAt: now,
	})
}

func (s *service) advanceTx(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor Actor) error {
	now := s.now().UTC()
	from := order.Status
	if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, to, now); err != nil {
		return err
	}
	if err := s.shipments.SyncWithOrder(ctx, tx, order.ID, to); err != nil {
		return err
	}
	order.Status = to
	order.UpdatedAt = now
	if to == enums.OrderStatusDelivered {
		order.DeliveredAt = &now
	}
	return s.emit(ctx, tx, enums.EventOrderStatusChanged, order.ID, actor, payloads.OrderStatusChangedEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		From:    from,
		To:      to,
		Source:  enums.TransitionSourceAdmin,
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actor Actor, data any) error {
	userID := actor.UserID
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{UserID: &userID, Role: string(actor.Role)},
		Data:          data,
		Version:       1,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func validateActor(orderID, userID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
