package payments

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

// Repository persists payment attempts. Status writes only ever leave pending.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	FindPendingForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByGatewayRef(ctx context.Context, orderID uuid.UUID, gatewayRef string) (*models.Payment, error)
	FindByGatewayOrderRef(ctx context.Context, ref string) (*models.Payment, error)
	LatestSettled(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	TransitionPending(ctx context.Context, id uuid.UUID, to enums.PaymentStatus, gatewayRef string, at time.Time) error
	FlagForReview(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	FlagSettledForReview(ctx context.Context, id uuid.UUID, reason string) error
	AttachIntent(ctx context.Context, id uuid.UUID, intentID, gatewayOrderRef string) error
	ClosePendingForOrder(ctx context.Context, orderID uuid.UUID, to enums.PaymentStatus, at time.Time) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

// FindPendingForUpdate locks the order's pending payment. It returns nil when
// the order has none.
func (r *repository) FindPendingForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		First(&payment).Error
	return optional(&payment, err, "load pending payment")
}

// FindByGatewayRef returns the order's payment already settled with gatewayRef.
func (r *repository) FindByGatewayRef(ctx context.Context, orderID uuid.UUID, gatewayRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND gateway_ref = ?", orderID, gatewayRef).
		First(&payment).Error
	return optional(&payment, err, "load payment by gateway ref")
}

// FindByGatewayOrderRef returns the most recent payment created for the
// gateway-side order reference.
func (r *repository) FindByGatewayOrderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_order_ref = ?", ref).
		Order("created_at DESC").
		First(&payment).Error
	return optional(&payment, err, "load payment by gateway order ref")
}

// LatestSettled returns the most recently settled payment of an order, or nil.
func (r *repository) LatestSettled(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusPending).
		Order("updated_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settled payment")
	}
	return &payment, nil
}

// TransitionPending settles a pending payment. Losing the race to another
// writer reports CONFLICT and changes nothing.
func (r *repository) TransitionPending(ctx context.Context, id uuid.UUID, to enums.PaymentStatus, gatewayRef string, at time.Time) error {
	updates := map[string]any{
		"status":     to,
		"settled_at": at,
		"updated_at": at,
	}
	if gatewayRef != "" {
		updates["gateway_ref"] = gatewayRef
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update payment status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment is no longer pending").
			WithDetails(map[string]any{"payment_id": id})
	}
	return nil
}

// FlagForReview marks a still-pending payment for manual follow-up.
func (r *repository) FlagForReview(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"review_required": true,
			"review_reason":   reason,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "flag payment for review")
	}
	return res.RowsAffected > 0, nil
}

// FlagSettledForReview marks an already settled payment for manual follow-up.
func (r *repository) FlagSettledForReview(ctx context.Context, id uuid.UUID, reason string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"review_required": true,
			"review_reason":   reason,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag settled payment for review")
	}
	return nil
}

// AttachIntent records the gateway intent opened for a pending payment.
func (r *repository) AttachIntent(ctx context.Context, id uuid.UUID, intentID, gatewayOrderRef string) error {
	updates := map[string]any{"intent_id": intentID}
	if gatewayOrderRef != "" {
		updates["gateway_order_ref"] = gatewayOrderRef
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "attach payment intent")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment is no longer pending").
			WithDetails(map[string]any{"payment_id": id})
	}
	return nil
}

// ClosePendingForOrder moves every pending payment of the order to status and
// returns their ids.
func (r *repository) ClosePendingForOrder(ctx context.Context, orderID uuid.UUID, to enums.PaymentStatus, at time.Time) ([]uuid.UUID, error) {
	if !to.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pending payments close into a terminal status")
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending).
		Pluck("id", &ids).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock pending payments")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id IN ? AND status = ?", ids, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":     to,
			"settled_at": at,
			"updated_at": at,
		}).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close pending payments")
	}
	return ids, nil
}

func optional(payment *models.Payment, err error, op string) (*models.Payment, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	return payment, nil
}

// PendingCloser adapts the repository to the transaction-scoped closer the
// order workflows use.
type PendingCloser struct {
	repo Repository
}

// NewPendingCloser wraps repo.
func NewPendingCloser(repo Repository) *PendingCloser {
	return &PendingCloser{repo: repo}
}

func (c *PendingCloser) ClosePending(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.PaymentStatus, at time.Time) ([]uuid.UUID, error) {
	return c.repo.WithTx(tx).ClosePendingForOrder(ctx, orderID, status, at)
}
