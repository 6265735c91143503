package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Movement annotates a ledger mutation in the movement log.
type Movement struct {
	OrderID *uuid.UUID
	Reason  enums.InventoryMovementReason
}

// Ledger is the single entry point for stock mutation. Every decrement and
// increment locks the product's inventory record and appends a movement row.
type Ledger struct {
	db *gorm.DB
	tx txRunner
}

// NewLedger binds the ledger to a connection for reads and a runner for
// self-managed transactions.
func NewLedger(conn *gorm.DB, tx txRunner) (*Ledger, error) {
	if conn == nil {
		return nil, fmt.Errorf("inventory db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &Ledger{db: conn, tx: tx}, nil
}

// Decrement removes qty units of productID. A missing record counts as zero
// stock. When tx is nil the ledger opens its own transaction.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv Movement) (*models.InventoryRecord, error) {
	if err := validateMutation(productID, qty, mv); err != nil {
		return nil, err
	}
	var out *models.InventoryRecord
	err := l.within(ctx, tx, func(tx *gorm.DB) error {
		record, err := lockRecord(ctx, tx, productID)
		if err != nil {
			return err
		}
		if record == nil {
			return insufficientStock(productID, qty, 0)
		}
		if record.AvailableQty < qty {
			return insufficientStock(productID, qty, record.AvailableQty)
		}

		remaining := record.AvailableQty - qty
		if err := applyBalance(ctx, tx, record, remaining); err != nil {
			return err
		}
		if err := appendMovement(ctx, tx, productID, -qty, remaining, mv); err != nil {
			return err
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Increment adds qty units back to productID, creating the record when the
// product has never been stocked.
func (l *Ledger) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv Movement) (*models.InventoryRecord, error) {
	if err := validateMutation(productID, qty, mv); err != nil {
		return nil, err
	}
	var out *models.InventoryRecord
	err := l.within(ctx, tx, func(tx *gorm.DB) error {
		record, err := lockRecord(ctx, tx, productID)
		if err != nil {
			return err
		}
		if record == nil {
			record = &models.InventoryRecord{
				ProductID:    productID,
				AvailableQty: qty,
				Status:       enums.InventoryStatusFor(qty),
			}
			if err := tx.WithContext(ctx).Create(record).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
			}
		} else if err := applyBalance(ctx, tx, record, record.AvailableQty+qty); err != nil {
			return err
		}
		if err := appendMovement(ctx, tx, productID, qty, record.AvailableQty, mv); err != nil {
			return err
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the current record for productID.
func (l *Ledger) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := l.db.WithContext(ctx).Where("product_id = ?", productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return &record, nil
}

func (l *Ledger) within(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return l.tx.WithTx(ctx, fn)
}

func validateMutation(productID uuid.UUID, qty int, mv Movement) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"product_id": productID, "quantity": qty})
	}
	if !mv.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory movement reason")
	}
	return nil
}

func lockRecord(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory record")
	}
	return &record, nil
}

// applyBalance writes the new balance only if the row still holds the value
// read under the lock.
func applyBalance(ctx context.Context, tx *gorm.DB, record *models.InventoryRecord, balance int) error {
	status := enums.InventoryStatusFor(balance)
	res := tx.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ? AND available_qty = ?", record.ID, record.AvailableQty).
		Updates(map[string]any{
			"available_qty": balance,
			"status":        status,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update inventory record")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "inventory record changed concurrently").
			WithDetails(map[string]any{"product_id": record.ProductID})
	}
	record.AvailableQty = balance
	record.Status = status
	return nil
}

func appendMovement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta, balance int, mv Movement) error {
	movement := &models.InventoryMovement{
		ProductID:    productID,
		OrderID:      mv.OrderID,
		Delta:        delta,
		BalanceAfter: balance,
		Reason:       mv.Reason,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory movement")
	}
	return nil
}

func insufficientStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		})
}
