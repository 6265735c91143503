package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/checkout/helpers"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/payments"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/users"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockChecker interface {
	CheckBatch(ctx context.Context, requests []inventory.StockRequest) (inventory.AvailabilityReport, error)
}

// Service executes checkout orchestration.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*Result, error)
}

// CreateOrderInput is what the buyer submits at checkout.
type CreateOrderInput struct {
	AddressID uuid.UUID             `json:"address_id" validate:"required"`
	Items     []helpers.LineRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// Result is the created order plus where to send the buyer to pay.
type Result struct {
	Order       *models.Order `json:"order"`
	PaymentID   uuid.UUID     `json:"payment_id"`
	IntentID    string        `json:"intent_id"`
	RedirectURL string        `json:"redirect_url"`
}

// ServiceParams carries the checkout dependencies.
type ServiceParams struct {
	Tx         txRunner
	Catalog    Repository
	Orders     orders.Repository
	Payments   payments.Repository
	Users      *users.Repository
	Stock      stockChecker
	Intents    IntentProvider
	Outbox     outbox.Emitter
	ReturnURLs ReturnURLs
	Logger     *logger.Logger
}

type service struct {
	tx         txRunner
	catalog    Repository
	orders     orders.Repository
	payments   payments.Repository
	users      *users.Repository
	stock      stockChecker
	intents    IntentProvider
	outbox     outbox.Emitter
	returnURLs ReturnURLs
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Intents == nil:
		return nil, fmt.Errorf("intent provider required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         params.Tx,
		catalog:    params.Catalog,
		orders:     params.Orders,
		payments:   params.Payments,
		users:      params.Users,
		stock:      params.Stock,
		intents:    params.Intents,
		outbox:     params.Outbox,
		returnURLs: params.ReturnURLs,
		logg:       params.Logger,
	}, nil
}

// CreateOrder validates the request, persists the pending order together with
// its line items and first payment, then opens the gateway payment. Inventory
// is checked but never reserved here.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	lines := helpers.MergeLines(input.Items)
	if err := helpers.ValidateLines(lines); err != nil {
		return nil, err
	}
	if err := s.checkStock(ctx, lines); err != nil {
		return nil, err
	}

	var (
		order   *models.Order
		payment *models.Payment
		user    *models.User
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.users.WithTx(tx)
		var err error
		user, err = usersRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := usersRepo.FindAddress(ctx, userID, input.AddressID); err != nil {
			return err
		}

		products, err := s.catalog.WithTx(tx).FindProducts(ctx, helpers.ProductIDs(lines))
		if err != nil {
			return err
		}
		if err := helpers.ValidateProducts(lines, products); err != nil {
			return err
		}

		items := make([]models.OrderLineItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, helpers.SnapshotLine(products[line.ProductID], line.Quantity))
		}

		order = &models.Order{
			UserID:    userID,
			AddressID: input.AddressID,
			Total:     helpers.Total(items),
			Status:    enums.OrderStatusPending,
			LineItems: items,
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		payment = &models.Payment{
			OrderID: order.ID,
			Amount:  order.Total,
			Status:  enums.PaymentStatusPending,
		}
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		return s.emitOrderCreated(ctx, tx, order, payment.ID)
	})
	if err != nil {
		return nil, err
	}

	intent, err := s.intents.CreateIntent(ctx, s.intentRequest(order, payment.ID, user.Email))
	if err != nil {
		s.logError(ctx, order.ID, "open payment intent", err)
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "open payment intent")
	}
	if err := s.payments.AttachIntent(ctx, payment.ID, intent.IntentID, intent.GatewayOrderRef); err != nil {
		return nil, err
	}

	s.logInfo(ctx, order.ID, "checkout order created", map[string]any{
		"payment_id": payment.ID.String(),
		"intent_id":  intent.IntentID,
		"total":      order.Total.StringFixed(2),
		"lines":      len(order.LineItems),
	})

	return &Result{
		Order:       order,
		PaymentID:   payment.ID,
		IntentID:    intent.IntentID,
		RedirectURL: intent.RedirectURL,
	}, nil
}

func (s *service) checkStock(ctx context.Context, lines []helpers.LineRequest) error {
	if s.stock == nil {
		return nil
	}
	requests := make([]inventory.StockRequest, 0, len(lines))
	for _, line := range lines {
		requests = append(requests, inventory.StockRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	report, err := s.stock.CheckBatch(ctx, requests)
	if err != nil {
		return err
	}
	if report.Available {
		return nil
	}
	short := make([]inventory.StockDetail, 0, len(report.Details))
	for _, detail := range report.Details {
		if !detail.Sufficient {
			short = append(short, detail)
		}
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"items": short})
}

func (s *service) intentRequest(order *models.Order, paymentID uuid.UUID, email string) IntentRequest {
	items := make([]IntentItem, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		items = append(items, IntentItem{
			Name:      line.ProductName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return IntentRequest{
		OrderID:    order.ID,
		PaymentID:  paymentID,
		Items:      items,
		ReturnURLs: s.returnURLs,
		BuyerEmail: email,
	}
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, paymentID uuid.UUID) error {
	userID := order.UserID
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: &userID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			PaymentID: paymentID,
			Total:     order.Total,
			ItemCount: len(order.LineItems),
		},
		Version: 1,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_created")
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func (s *service) logError(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), msg, err)
}
