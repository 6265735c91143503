package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
)

func mustTime(t testing.TB, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func nextCarrier(t *testing.T, client interface {
	WithTx(context.Context, func(*gorm.DB) error) error
}, assigner *CarrierAssigner) Assignment {
	t.Helper()
	var out Assignment
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		out, err = assigner.Next(context.Background(), tx)
		return err
	}))
	return out
}

func TestCarrierAssignerRoundRobin(t *testing.T) {
	client, conn := dbtest.Client(t)
	second := dbtest.SeedCarrier(t, conn, "Olva Courier", 2)
	first := dbtest.SeedCarrier(t, conn, "Shalom Express", 1)
	inactive := models.Carrier{Name: "Retired", Position: 0, IsActive: true}
	require.NoError(t, conn.Create(&inactive).Error)
	require.NoError(t, conn.Model(&inactive).Update("is_active", false).Error)

	assigner, err := NewCarrierAssigner(uuid.New(), nil)
	require.NoError(t, err)

	var got []uuid.UUID
	for i := 0; i < 5; i++ {
		got = append(got, nextCarrier(t, client, assigner).Carrier.ID)
	}
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, first.ID, second.ID, first.ID}, got)

	var cursor models.CarrierCursor
	require.NoError(t, conn.First(&cursor, "name = ?", CursorName).Error)
	assert.EqualValues(t, 5, cursor.Assignments)
}

func TestCarrierAssignerFallsBack(t *testing.T) {
	client, conn := dbtest.Client(t)
	fallbackID := uuid.New()
	assigner, err := NewCarrierAssigner(fallbackID, nil)
	require.NoError(t, err)

	got := nextCarrier(t, client, assigner)
	assert.True(t, got.Fallback)
	assert.Equal(t, fallbackID, got.Carrier.ID)

	var count int64
	require.NoError(t, conn.Model(&models.CarrierCursor{}).Count(&count).Error)
	assert.Zero(t, count, "fallback assignments do not advance the cursor")
}

func TestNewCarrierAssignerRequiresFallback(t *testing.T) {
	_, err := NewCarrierAssigner(uuid.Nil, nil)
	assert.Error(t, err)
}
