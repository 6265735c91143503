package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, mapFindError(err)
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction. Line
// items are immutable and read without a lock.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, mapFindError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&order.LineItems).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}
	return &order, nil
}

// UpdateStatus moves the order from -> to only if it is still in from. A lost
// race leaves the row untouched and reports INVALID_TRANSITION.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if column := timestampColumn(to); column != "" {
		updates[column] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently").
			WithDetails(map[string]any{"order_id": id, "from": from, "to": to})
	}
	return nil
}

// ListPendingBefore returns pending orders created before cutoff, oldest first,
// skipping orders whose pending payment awaits manual review.
func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM payments p WHERE p.order_id = orders.id AND p.status = ? AND p.review_required = ?)",
			enums.PaymentStatusPending, true).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired pending orders")
	}
	return rows, nil
}

func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusConfirmed:
		return "confirmed_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	case enums.OrderStatusAbandoned:
		return "abandoned_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	default:
		return ""
	}
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
