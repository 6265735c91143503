package inventory

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
)

func TestInLockOrderSortsByProductWithoutTouchingInput(t *testing.T) {
	low := uuid.MustParse("10000000-0000-4000-8000-000000000000")
	mid := uuid.MustParse("80000000-0000-4000-8000-000000000000")
	high := uuid.MustParse("f0000000-0000-4000-8000-000000000000")
	items := []models.OrderLineItem{
		{ProductID: high, Quantity: 1},
		{ProductID: low, Quantity: 2},
		{ProductID: mid, Quantity: 3},
	}

	got := InLockOrder(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if bytes.Compare(got[i-1].ProductID[:], got[i].ProductID[:]) > 0 {
			t.Fatalf("items out of order at %d: %v", i, got)
		}
	}
	if got[0].Quantity != 2 || got[2].Quantity != 1 {
		t.Fatalf("quantities did not travel with products: %+v", got)
	}
	if items[0].ProductID != high {
		t.Fatalf("input slice was reordered")
	}

	// Two orders holding the same products in opposite order lock identically.
	a := InLockOrder([]models.OrderLineItem{{ProductID: mid}, {ProductID: low}})
	b := InLockOrder([]models.OrderLineItem{{ProductID: low}, {ProductID: mid}})
	if a[0].ProductID != b[0].ProductID || a[1].ProductID != b[1].ProductID {
		t.Fatalf("lock order differs: %v vs %v", a, b)
	}
}
