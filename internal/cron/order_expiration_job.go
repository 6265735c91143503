package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

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

const (
	defaultPendingTimeout = 2 * time.Hour
	defaultSweepBatchSize = 200
)

type notificationSender interface {
	Send(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload)
}

// SweepResult reports how many orders a sweep abandoned.
type SweepResult struct {
	SweptCount int `json:"swept_count"`
}

// OrderExpirationJobParams configure the pending order sweeper.
type OrderExpirationJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Orders         orders.Repository
	Payments       orders.PendingPaymentCloser
	Outbox         outbox.Emitter
	Notifier       notificationSender
	Metrics        *metrics.OrderMetrics
	PendingTimeout time.Duration
	BatchSize      int
}

// OrderExpirationJob abandons orders that stayed pending past the timeout.
type OrderExpirationJob struct {
	logg      *logger.Logger
	db        txRunner
	orders    orders.Repository
	payments  orders.PendingPaymentCloser
	outbox    outbox.Emitter
	notifier  notificationSender
	metrics   *metrics.OrderMetrics
	timeout   time.Duration
	batchSize int
	now       func() time.Time
}

// NewOrderExpirationJob builds the sweeper.
func NewOrderExpirationJob(params OrderExpirationJobParams) (*OrderExpirationJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment closer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	timeout := params.PendingTimeout
	if timeout <= 0 {
		timeout = defaultPendingTimeout
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &OrderExpirationJob{
		logg:      params.Logger,
		db:        params.DB,
		orders:    params.Orders,
		payments:  params.Payments,
		outbox:    params.Outbox,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		timeout:   timeout,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

func (j *OrderExpirationJob) Name() string { return "order-expiration" }

func (j *OrderExpirationJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep abandons every expired pending order, one transaction per order. A
// failing order does not stop the rest; failures come back combined.
func (j *OrderExpirationJob) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := j.now().UTC().Add(-j.timeout)
	candidates, err := j.orders.ListPendingBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("query expired pending orders: %w", err)
	}

	var (
		result SweepResult
		errs   error
	)
	for _, candidate := range candidates {
		swept, err := j.expire(ctx, candidate.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", candidate.ID, err))
			continue
		}
		if swept == nil {
			continue
		}
		result.SweptCount++
		j.notify(ctx, swept)
	}
	j.metrics.AddAbandoned(result.SweptCount)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(candidates),
		"swept":      result.SweptCount,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "order expiration sweep complete")
	return result, errs
}

// expire returns nil when the order left pending before its lock was taken.
func (j *OrderExpirationJob) expire(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var swept *models.Order
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if err := orders.ValidateTransition(order.Status, enums.OrderStatusAbandoned, enums.TransitionSourceExpirationSweeper); err != nil {
			return err
		}

		now := j.now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAbandoned, now); err != nil {
			return err
		}
		paymentIDs, err := j.payments.ClosePending(ctx, tx, order.ID, enums.PaymentStatusAbandoned, now)
		if err != nil {
			return err
		}
		err = j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAbandoned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.TransitionSourceExpirationSweeper)},
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderAbandonedEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				PaymentIDs:  paymentIDs,
				CreatedAt:   order.CreatedAt,
				AbandonedAt: now,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_abandoned")
		}

		order.Status = enums.OrderStatusAbandoned
		order.AbandonedAt = &now
		swept = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

func (j *OrderExpirationJob) notify(ctx context.Context, order *models.Order) {
	if j.notifier == nil {
		return
	}
	orderID := order.ID
	j.notifier.Send(ctx, order.UserID, enums.NotificationTypeOrderAbandoned, notifications.Payload{
		OrderID: &orderID,
		Message: "Your order expired before payment was received.",
	})
}
