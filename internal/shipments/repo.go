package shipments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
)

// Repository persists shipment rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByOrder returns the shipment of orderID, or nil when none exists.
func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *Repository) Create(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

// UpdateStatusByOrder sets the status of the order's shipment and reports
// whether a row was changed.
func (r *Repository) UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, status enums.ShipmentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"status": status})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
