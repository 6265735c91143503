package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
)

// MaxRequestQuantity caps a single availability line, matching the checkout
// line cap.
const MaxRequestQuantity = 100

// maxRequestedTotal bounds the summed quantity of one product across lines.
const maxRequestedTotal = 1_000_000

// StockRequest is one product/quantity pair of a prospective order.
type StockRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

// StockDetail reports availability for a single product.
type StockDetail struct {
	ProductID  uuid.UUID `json:"product_id"`
	Requested  int       `json:"requested"`
	Available  int       `json:"available"`
	Sufficient bool      `json:"sufficient"`
}

// AvailabilityReport is the advisory answer for a full line-item list.
type AvailabilityReport struct {
	Available bool          `json:"available"`
	Details   []StockDetail `json:"details"`
}

// CheckAvailability reports whether qty units of productID are in stock
// right now. Nothing is locked or reserved.
func (l *Ledger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	report, err := l.CheckBatch(ctx, []StockRequest{{ProductID: productID, Quantity: qty}})
	if err != nil {
		return false, err
	}
	return report.Available, nil
}

// CheckBatch evaluates a list of requests. Repeated products are summed.
func (l *Ledger) CheckBatch(ctx context.Context, requests []StockRequest) (AvailabilityReport, error) {
	if len(requests) == 0 {
		return AvailabilityReport{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	order := make([]uuid.UUID, 0, len(requests))
	wanted := make(map[uuid.UUID]int, len(requests))
	for i, req := range requests {
		if req.ProductID == uuid.Nil {
			return AvailabilityReport{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"index": i})
		}
		if req.Quantity <= 0 {
			return AvailabilityReport{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"index": i, "product_id": req.ProductID})
		}
		if req.Quantity > MaxRequestQuantity {
			return AvailabilityReport{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit").
				WithDetails(map[string]any{"index": i, "product_id": req.ProductID, "max": MaxRequestQuantity})
		}
		if _, seen := wanted[req.ProductID]; !seen {
			order = append(order, req.ProductID)
		}
		if wanted[req.ProductID] > maxRequestedTotal-req.Quantity {
			return AvailabilityReport{}, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity too large").
				WithDetails(map[string]any{"index": i, "product_id": req.ProductID})
		}
		wanted[req.ProductID] += req.Quantity
	}

	var records []models.InventoryRecord
	if err := l.db.WithContext(ctx).Where("product_id IN ?", order).Find(&records).Error; err != nil {
		return AvailabilityReport{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory records")
	}
	stock := make(map[uuid.UUID]int, len(records))
	for _, record := range records {
		stock[record.ProductID] = record.AvailableQty
	}

	report := AvailabilityReport{Available: true, Details: make([]StockDetail, 0, len(order))}
	for _, productID := range order {
		detail := StockDetail{
			ProductID: productID,
			Requested: wanted[productID],
			Available: stock[productID],
		}
		detail.Sufficient = detail.Available >= detail.Requested
		if !detail.Sufficient {
			report.Available = false
		}
		report.Details = append(report.Details, detail)
	}
	return report, nil
}
