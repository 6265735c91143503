package helpers

import (
	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
)

// MaxLines caps the distinct products of a single order.
const MaxLines = 50

// ValidateLines checks the merged line list before anything is loaded.
func ValidateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order contains no items")
	}
	if len(lines) > MaxLines {
		return pkgerrors.New(pkgerrors.CodeValidation, "order contains too many items").
			WithDetails(map[string]any{"max": MaxLines})
	}
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"index": i})
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"index": i, "product_id": line.ProductID})
		}
	}
	return nil
}

// ValidateProducts ensures every requested product exists and is on sale.
func ValidateProducts(lines []LineRequest, products map[uuid.UUID]models.Product) error {
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available for sale").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if product.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInternal, "product has a negative price").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}
	return nil
}
