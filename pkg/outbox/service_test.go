package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox/payloads"
)

func TestEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID: orderID,
				From:    enums.OrderStatusConfirmed,
				To:      enums.OrderStatusPreparing,
				Source:  enums.TransitionSourceAdmin,
			},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)

	var data payloads.OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.OrderStatusPreparing, data.To)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated})
	require.Error(t, err)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{EventType: "mystery", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()})
	})
	require.Error(t, err)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderCreatedEvent{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Data:          payloads.OrderCreatedEvent{},
			})
		}))
	}

	var batch []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, batch, 3)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, batch[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, batch[1].ID, errors.New("unavailable")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, batch[2].ID, errors.New("bad payload"), 3)
	}))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, remaining, 1)
	assert.Equal(t, batch[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "unavailable", *remaining[0].LastError)

	var unpublished int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&unpublished).Error)
	assert.Equal(t, int64(2), unpublished)
}

func TestDLQInsertTruncatesErrorMessage(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewDLQRepository(conn)
	message := strings.Repeat("x", maxDLQErrorLen+200)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &message,
		AttemptCount:  1,
	}

	require.Error(t, repo.InsertTx(nil, entry))
	unknown := entry
	unknown.ErrorReason = "gave_up"
	require.Error(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, unknown)
	}))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, entry)
	}))

	var stored models.OutboxDLQ
	require.NoError(t, conn.First(&stored, "event_id = ?", entry.EventID).Error)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, stored.ErrorReason)
}
