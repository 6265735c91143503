package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
)

// MaxRestockQuantity bounds a single manual restock.
const MaxRestockQuantity = 100000

// Restocker applies manual stock receipts on behalf of an admin.
type Restocker struct {
	ledger *Ledger
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewRestocker(ledger *Ledger, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (*Restocker, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Restocker{ledger: ledger, tx: tx, outbox: emitter, logg: logg}, nil
}

// Restock adds qty units of an existing product and records who did it.
func (r *Restocker) Restock(ctx context.Context, productID uuid.UUID, qty int, adminID uuid.UUID) (*models.InventoryRecord, error) {
	if qty > MaxRestockQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity too large").
			WithDetails(map[string]any{"max": MaxRestockQuantity})
	}
	var out *models.InventoryRecord
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.WithContext(ctx).Select("id").First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		record, err := r.ledger.Increment(ctx, tx, productID, qty, Movement{Reason: enums.MovementRestock})
		if err != nil {
			return err
		}
		actor := adminID
		if err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryRestocked,
			AggregateType: enums.AggregateInventory,
			AggregateID:   productID,
			Actor:         &outbox.ActorRef{UserID: &actor, Role: string(enums.UserRoleAdmin)},
			Data: payloads.InventoryRestockedEvent{
				ProductID:    productID,
				Quantity:     qty,
				BalanceAfter: record.AvailableQty,
			},
			Version: 1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit inventory_restocked")
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.logg != nil {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"product_id":    productID.String(),
			"quantity":      qty,
			"balance_after": out.AvailableQty,
		}), "inventory restocked")
	}
	return out, nil
}
