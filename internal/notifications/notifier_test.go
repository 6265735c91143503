package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

type failingNotifier struct {
	calls int
	err   error
	panic bool
}

func (f *failingNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload) error {
	f.calls++
	if f.panic {
		panic("notifier exploded")
	}
	return f.err
}

func TestInAppNotifierPersistsNotification(t *testing.T) {
	conn := dbtest.Open(t)
	notifier, err := NewInAppNotifier(NewRepository(conn))
	require.NoError(t, err)

	userID := uuid.New()
	orderID := uuid.New()
	err = notifier.Notify(context.Background(), userID, enums.NotificationTypeOrderConfirmed, Payload{
		OrderID: &orderID,
		Message: "Your order is confirmed",
	})
	require.NoError(t, err)

	var stored models.Notification
	require.NoError(t, conn.Where("user_id = ?", userID).First(&stored).Error)
	assert.Equal(t, enums.NotificationTypeOrderConfirmed, stored.Type)
	assert.Equal(t, "Order confirmed", stored.Title)
	require.NotNil(t, stored.OrderID)
	assert.Equal(t, orderID, *stored.OrderID)
}

func TestInAppNotifierRejectsInvalidInput(t *testing.T) {
	notifier, err := NewInAppNotifier(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	assert.Error(t, notifier.Notify(context.Background(), uuid.Nil, enums.NotificationTypeOrderConfirmed, Payload{}))
	assert.Error(t, notifier.Notify(context.Background(), uuid.New(), enums.NotificationType("bogus"), Payload{}))
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	ctx := context.Background()

	failing := &failingNotifier{err: errors.New("smtp down")}
	NewDispatcher(failing, logg).Send(ctx, uuid.New(), enums.NotificationTypePaymentFailed, Payload{})
	assert.Equal(t, 1, failing.calls)

	panicking := &failingNotifier{panic: true}
	assert.NotPanics(t, func() {
		NewDispatcher(panicking, logg).Send(ctx, uuid.New(), enums.NotificationTypePaymentFailed, Payload{})
	})

	var nilDispatcher *Dispatcher
	assert.NotPanics(t, func() {
		nilDispatcher.Send(ctx, uuid.New(), enums.NotificationTypePaymentFailed, Payload{})
	})
}

func TestRepositoryListAndMarkRead(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			UserID:  userID,
			Type:    enums.NotificationTypeOrderStatusChanged,
			Title:   "Order updated",
			Message: "status changed",
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Notification{
		UserID: uuid.New(), Type: enums.NotificationTypeOrderConfirmed, Title: "other", Message: "other",
	}))

	svc, err := NewService(repo)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.Cursor)

	require.NoError(t, svc.MarkRead(ctx, userID, page.Items[0].ID))
	count, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}
