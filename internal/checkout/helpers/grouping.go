package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
)

// LineRequest is one product/quantity pair requested at checkout.
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

// MergeLines folds repeated products into a single line, keeping the order in
// which each product first appeared.
func MergeLines(lines []LineRequest) []LineRequest {
	merged := make([]LineRequest, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// ProductIDs lists the product ids of lines.
func ProductIDs(lines []LineRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

// SnapshotLine copies the catalog entry into an immutable order line.
func SnapshotLine(product models.Product, qty int) models.OrderLineItem {
	return models.OrderLineItem{
		ProductID:          product.ID,
		Quantity:           qty,
		UnitPrice:          product.Price,
		Subtotal:           product.Price.Mul(decimal.NewFromInt(int64(qty))),
		ProductName:        product.Name,
		ProductDescription: product.Description,
		ImageURL:           product.ImageURL,
		WeightGrams:        product.WeightGrams,
		Category:           product.Category,
	}
}

// Total sums line subtotals.
func Total(lines []models.OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total
}
