package shipments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

// CursorName is the carrier_cursors row shared by every shipment assignment.
const CursorName = "shipments"

const fallbackCarrierName = "Fresaterra dispatch"

// Assignment is the carrier chosen for a shipment.
type Assignment struct {
	Carrier  models.Carrier
	Fallback bool
}

// CarrierAssigner rotates through the active carriers using a durable counter.
type CarrierAssigner struct {
	fallbackID uuid.UUID
	logg       *logger.Logger
}

// NewCarrierAssigner builds an assigner that falls back to fallbackID when no
// carrier is active.
func NewCarrierAssigner(fallbackID uuid.UUID, logg *logger.Logger) (*CarrierAssigner, error) {
	if fallbackID == uuid.Nil {
		return nil, fmt.Errorf("fallback carrier id required")
	}
	return &CarrierAssigner{fallbackID: fallbackID, logg: logg}, nil
}

// Next picks the carrier for the next shipment and advances the cursor. It
// must run inside the caller's transaction so the cursor row stays locked
// until commit.
func (a *CarrierAssigner) Next(ctx context.Context, tx *gorm.DB) (Assignment, error) {
	if tx == nil {
		return Assignment{}, pkgerrors.New(pkgerrors.CodeInternal, "carrier assignment requires a transaction")
	}

	var carriers []models.Carrier
	if err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position ASC, created_at ASC, id ASC").
		Find(&carriers).Error; err != nil {
		return Assignment{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active carriers")
	}
	if len(carriers) == 0 {
		if a.logg != nil {
			a.logg.Warn(a.logg.WithField(ctx, "fallback_carrier_id", a.fallbackID.String()),
				"no active carriers configured, using fallback carrier")
		}
		return Assignment{
			Carrier:  models.Carrier{ID: a.fallbackID, Name: fallbackCarrierName},
			Fallback: true,
		}, nil
	}

	cursor, err := lockCursor(ctx, tx)
	if err != nil {
		return Assignment{}, err
	}
	idx := int(cursor.Assignments % int64(len(carriers)))

	res := tx.WithContext(ctx).
		Model(&models.CarrierCursor{}).
		Where("name = ? AND assignments = ?", CursorName, cursor.Assignments).
		Updates(map[string]any{"assignments": cursor.Assignments + 1})
	if res.Error != nil {
		return Assignment{}, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "advance carrier cursor")
	}
	if res.RowsAffected == 0 {
		return Assignment{}, pkgerrors.New(pkgerrors.CodeConflict, "carrier cursor changed concurrently")
	}
	return Assignment{Carrier: carriers[idx]}, nil
}

func lockCursor(ctx context.Context, tx *gorm.DB) (*models.CarrierCursor, error) {
	var cursor models.CarrierCursor
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", CursorName).
		First(&cursor).Error
	if err == nil {
		return &cursor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock carrier cursor")
	}

	// the migration seeds the row; schemas built without it get it lazily
	seed := models.CarrierCursor{Name: CursorName}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed carrier cursor")
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", CursorName).
		First(&cursor).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock carrier cursor")
	}
	return &cursor, nil
}
