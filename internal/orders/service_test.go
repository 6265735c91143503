package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
)

type paymentCloserStub struct {
	statuses []enums.PaymentStatus
}

func (p *paymentCloserStub) ClosePending(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.PaymentStatus, at time.Time) ([]uuid.UUID, error) {
	p.statuses = append(p.statuses, status)
	var ids []uuid.UUID
	if err := tx.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, tx.Model(&models.Payment{}).Where("id IN ?", ids).Update("status", status).Error
}

type shipmentSyncStub struct {
	synced []enums.OrderStatus
}

func (s *shipmentSyncStub) SyncWithOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) error {
	s.synced = append(s.synced, status)
	return nil
}

type sentNotification struct {
	userID uuid.UUID
	kind   enums.NotificationType
}

type notifierStub struct {
	sent []sentNotification
}

func (n *notifierStub) Send(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload notifications.Payload) {
	n.sent = append(n.sent, sentNotification{userID: userID, kind: kind})
}

type orderFixture struct {
	conn      *gorm.DB
	svc       Service
	payments  *paymentCloserStub
	shipments *shipmentSyncStub
	notifier  *notifierStub
	customer  dbtest.Customer
	product   models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledger, err := inventory.NewLedger(conn, client)
	require.NoError(t, err)

	f := &orderFixture{
		conn:      conn,
		payments:  &paymentCloserStub{},
		shipments: &shipmentSyncStub{},
		notifier:  &notifierStub{},
		customer:  dbtest.SeedCustomer(t, conn),
		product:   dbtest.SeedProduct(t, conn, "Fresas premium 1kg", "18.50", 10),
	}
	f.svc, err = NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Tx:        client,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Payments:  f.payments,
		Stock:     ledger,
		Shipments: f.shipments,
		Notifier:  f.notifier,
	})
	require.NoError(t, err)
	return f
}

func (f *orderFixture) seedOrder(t *testing.T, status enums.OrderStatus, qty int) models.Order {
	t.Helper()
	order, _ := dbtest.SeedPendingOrder(t, f.conn, f.customer, time.Time{}, dbtest.Line{Product: f.product, Quantity: qty})
	if status != enums.OrderStatusPending {
		require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", status).Error)
		order.Status = status
	}
	return order
}

func (f *orderFixture) stock(t *testing.T) int {
	t.Helper()
	var record models.InventoryRecord
	require.NoError(t, f.conn.Where("product_id = ?", f.product.ID).First(&record).Error)
	return record.AvailableQty
}

func (f *orderFixture) owner() Actor {
	return Actor{UserID: f.customer.User.ID, Role: enums.UserRoleCustomer}
}

func outboxCount(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType, aggregateID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).
		Count(&count).Error)
	return count
}

func TestCancelPendingOrderClosesPayments(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 2)

	got, err := f.svc.CancelOrder(context.Background(), order.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	assert.Equal(t, []enums.PaymentStatus{enums.PaymentStatusCancelled}, f.payments.statuses)
	assert.Empty(t, f.shipments.synced)
	assert.Equal(t, 10, f.stock(t), "pending orders never held stock")

	var payment models.Payment
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCancelled, payment.Status)

	assert.EqualValues(t, 1, outboxCount(t, f.conn, enums.EventOrderCancelled, order.ID))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, enums.NotificationTypeOrderCancelled, f.notifier.sent[0].kind)
}

func TestCancelConfirmedOrderRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusConfirmed, 3)
	// stock as it stands after confirmation decremented 3 of 10
	require.NoError(t, f.conn.Model(&models.InventoryRecord{}).
		Where("product_id = ?", f.product.ID).
		Update("available_qty", 7).Error)

	got, err := f.svc.CancelOrder(context.Background(), order.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.Equal(t, 10, f.stock(t))
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusCancelled}, f.shipments.synced)
	assert.Empty(t, f.payments.statuses)

	var movement models.InventoryMovement
	require.NoError(t, f.conn.Where("order_id = ? AND reason = ?", order.ID, enums.MovementOrderCancelled).First(&movement).Error)
	assert.Equal(t, 3, movement.Delta)
	assert.Equal(t, 10, movement.BalanceAfter)
}

func TestCancelRejectsForeignCustomer(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 1)

	_, err := f.svc.CancelOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	var reloaded models.Order
	require.NoError(t, f.conn.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)
	assert.Empty(t, f.notifier.sent)
}

func TestCancelClosedOverTerminalStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusAbandoned,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newOrderFixture(t)
			order := f.seedOrder(t, status, 1)

			_, err := f.svc.CancelOrder(context.Background(), order.ID, f.owner())
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

			_, err = f.svc.AdminTransition(context.Background(), order.ID, enums.OrderStatusCancelled, uuid.New())
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

			var reloaded models.Order
			require.NoError(t, f.conn.First(&reloaded, "id = ?", order.ID).Error)
			assert.Equal(t, status, reloaded.Status)
			assert.EqualValues(t, 0, outboxCount(t, f.conn, enums.EventOrderCancelled, order.ID))
		})
	}
}

func TestCustomerCannotCancelPreparingOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPreparing, 1)

	_, err := f.svc.CancelOrder(context.Background(), order.ID, f.owner())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	got, err := f.svc.AdminTransition(context.Background(), order.ID, enums.OrderStatusCancelled, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.Equal(t, 11, f.stock(t))
}

func TestAdminAdvancesAndSyncsShipment(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusConfirmed, 1)
	adminID := uuid.New()
	ctx := context.Background()

	for _, to := range []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusEnRoute, enums.OrderStatusDelivered} {
		got, err := f.svc.AdminTransition(ctx, order.ID, to, adminID)
		require.NoError(t, err)
		assert.Equal(t, to, got.Status)
	}

	assert.Equal(t, []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusEnRoute,
		enums.OrderStatusDelivered,
	}, f.shipments.synced)
	assert.EqualValues(t, 3, outboxCount(t, f.conn, enums.EventOrderStatusChanged, order.ID))

	var reloaded models.Order
	require.NoError(t, f.conn.First(&reloaded, "id = ?", order.ID).Error)
	assert.NotNil(t, reloaded.DeliveredAt)
}

func TestAdminCannotConfirmOrSkip(t *testing.T) {
	f := newOrderFixture(t)
	pending := f.seedOrder(t, enums.OrderStatusPending, 1)

	_, err := f.svc.AdminTransition(context.Background(), pending.ID, enums.OrderStatusConfirmed, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = f.svc.AdminTransition(context.Background(), pending.ID, enums.OrderStatusDelivered, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestAdminAbandonClosesPayments(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 1)

	got, err := f.svc.AdminTransition(context.Background(), order.ID, enums.OrderStatusAbandoned, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAbandoned, got.Status)
	assert.Equal(t, []enums.PaymentStatus{enums.PaymentStatusAbandoned}, f.payments.statuses)
	assert.EqualValues(t, 1, outboxCount(t, f.conn, enums.EventOrderAbandoned, order.ID))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, enums.NotificationTypeOrderAbandoned, f.notifier.sent[0].kind)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newOrderFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 2)
	ctx := context.Background()

	got, err := f.svc.Get(ctx, order.ID, f.owner())
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, 2, got.LineItems[0].Quantity)

	_, err = f.svc.Get(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, order.ID, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, uuid.New(), f.owner())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
