package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

// Payload is the content of a single user-facing notification.
type Payload struct {
	OrderID *uuid.UUID
	Title   string
	Message string
}

// Notifier delivers a notification to a user. Implementations may fail; callers
// inside workflows go through Dispatcher so failures never escape.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload) error
}

// InAppNotifier stores notifications for the in-app inbox.
type InAppNotifier struct {
	repo Repository
}

// NewInAppNotifier builds a notifier backed by the notifications table.
func NewInAppNotifier(repo Repository) (*InAppNotifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &InAppNotifier{repo: repo}, nil
}

func (n *InAppNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", kind))
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = defaultTitle(kind)
	}
	return n.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		OrderID: payload.OrderID,
		Type:    kind,
		Title:   title,
		Message: strings.TrimSpace(payload.Message),
	})
}

// Dispatcher is the fire-and-forget front of a Notifier: errors are logged and
// swallowed.
type Dispatcher struct {
	notifier Notifier
	logg     *logger.Logger
}

// NewDispatcher wraps notifier. A nil notifier turns Send into a no-op.
func NewDispatcher(notifier Notifier, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logg: logg}
}

// Send delivers the notification and never reports failure.
func (d *Dispatcher) Send(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload) {
	if d == nil || d.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logFailure(ctx, userID, kind, fmt.Errorf("notifier panic: %v", r))
		}
	}()
	if err := d.notifier.Notify(ctx, userID, kind, payload); err != nil {
		d.logFailure(ctx, userID, kind, err)
	}
}

func (d *Dispatcher) logFailure(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, err error) {
	if d.logg == nil {
		return
	}
	ctx = d.logg.WithFields(ctx, map[string]any{
		"user_id":           userID.String(),
		"notification_type": string(kind),
	})
	d.logg.Warn(ctx, "notification delivery failed: "+err.Error())
}

func defaultTitle(kind enums.NotificationType) string {
	switch kind {
	case enums.NotificationTypeOrderConfirmed:
		return "Order confirmed"
	case enums.NotificationTypeOrderCancelled:
		return "Order cancelled"
	case enums.NotificationTypeOrderAbandoned:
		return "Order expired"
	case enums.NotificationTypePaymentFailed:
		return "Payment failed"
	default:
		return "Order updated"
	}
}
