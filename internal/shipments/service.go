package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/users"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/types"
)

type carrierPicker interface {
	Next(ctx context.Context, tx *gorm.DB) (Assignment, error)
}

// Service creates the single shipment of a confirmed order and keeps its
// status aligned with the order.
type Service interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, bool, error)
	SyncWithOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
}

// ServiceParams carries the shipment service dependencies.
type ServiceParams struct {
	Repo     *Repository
	Users    *users.Repository
	Carriers carrierPicker
	Policy   CostPolicy
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	users    *users.Repository
	carriers carrierPicker
	policy   CostPolicy
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates and wires the shipment service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if p.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if p.Carriers == nil {
		return nil, fmt.Errorf("carrier assigner required")
	}
	if p.Policy == nil {
		return nil, fmt.Errorf("shipping cost policy required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     p.Repo,
		users:    p.Users,
		carriers: p.Carriers,
		policy:   p.Policy,
		outbox:   p.Outbox,
		logg:     p.Logger,
		now:      now,
	}, nil
}

// CreateForOrder returns the order's shipment, creating it on first call. The
// boolean reports whether this call created it.
func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Shipment, bool, error) {
	if tx == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "shipment creation requires a transaction")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	if existing != nil {
		return existing, false, nil
	}

	directory := s.users.WithTx(tx)
	user, err := directory.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, false, err
	}
	address, err := directory.FindAddress(ctx, order.UserID, order.AddressID)
	if err != nil {
		return nil, false, err
	}

	assignment, err := s.carriers.Next(ctx, tx)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	shipment := &models.Shipment{
		OrderID:         order.ID,
		CarrierID:       assignment.Carrier.ID,
		Cost:            s.policy.Cost(order.Total),
		Status:          enums.ShipmentStatusScheduled,
		ScheduledAt:     nextDay(now),
		AddressSnapshot: users.AddressSnapshot(user, address),
		CarrierSnapshot: carrierSnapshot(assignment),
	}
	if err := repo.Create(ctx, shipment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDuplicateShipment, err, "shipment already exists for order").
				WithDetails(map[string]any{"order_id": order.ID})
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventShipmentCreated,
		AggregateType: enums.AggregateShipment,
		AggregateID:   shipment.ID,
		Data: payloads.ShipmentCreatedEvent{
			ShipmentID:  shipment.ID,
			OrderID:     order.ID,
			CarrierID:   shipment.CarrierID,
			Cost:        shipment.Cost,
			ScheduledAt: shipment.ScheduledAt,
			Fallback:    assignment.Fallback,
		},
		Version: 1,
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shipment_created")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"shipment_id": shipment.ID.String(),
			"carrier_id":  shipment.CarrierID.String(),
			"fallback":    assignment.Fallback,
		})
		s.logg.Info(logCtx, "shipment scheduled")
	}
	return shipment, true, nil
}

// SyncWithOrder mirrors status onto the order's shipment. Orders without a
// shipment, and order statuses with no shipment counterpart, are left alone.
func (s *service) SyncWithOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) error {
	target, ok := enums.ShipmentStatusForOrder(status)
	if !ok {
		return nil
	}
	if _, err := s.repo.WithTx(tx).UpdateStatusByOrder(ctx, orderID, target); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync shipment status")
	}
	return nil
}

func (s *service) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

// nextDay returns midnight UTC of the day after now.
func nextDay(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func carrierSnapshot(a Assignment) types.CarrierSnapshot {
	return types.CarrierSnapshot{
		CarrierID:   a.Carrier.ID,
		Name:        a.Carrier.Name,
		ContactName: a.Carrier.ContactName,
		Phone:       a.Carrier.Phone,
		Email:       a.Carrier.Email,
		Fallback:    a.Fallback,
	}
}
