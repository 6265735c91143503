package inventory

import (
	"bytes"
	"slices"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
)

// InLockOrder returns a copy of items sorted by product id. Multi-line
// mutations walk this order so concurrent transactions take inventory row
// locks in the same sequence.
func InLockOrder(items []models.OrderLineItem) []models.OrderLineItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b models.OrderLineItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}
