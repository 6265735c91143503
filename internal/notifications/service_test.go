package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/pagination"
)

// inboxStub answers from canned values and records what the service asked for.
type inboxStub struct {
	listed []listNotificationsParams
	rows   []models.Notification
	next   *pagination.Cursor
	mark   notificationMarkResult
	marked int64
	pruned []time.Time
	err    error
}

func (s *inboxStub) WithTx(tx *gorm.DB) Repository { return s }

func (s *inboxStub) Create(ctx context.Context, notification *models.Notification) error {
	return s.err
}

func (s *inboxStub) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	s.listed = append(s.listed, params)
	return s.rows, s.next, s.err
}

func (s *inboxStub) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return s.mark, s.err
}

func (s *inboxStub) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return s.marked, s.err
}

func (s *inboxStub) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.pruned = append(s.pruned, cutoff)
	return 0, s.err
}

func seedInbox(t *testing.T, conn *gorm.DB, userID uuid.UUID, n int, start time.Time) []models.Notification {
	t.Helper()
	rows := make([]models.Notification, 0, n)
	for i := 0; i < n; i++ {
		row := models.Notification{
			UserID:    userID,
			Type:      enums.NotificationTypeOrderStatusChanged,
			Title:     "Order updated",
			Message:   "Your order moved to preparing",
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, conn.Create(&row).Error)
		rows = append(rows, row)
	}
	return rows
}

func TestListPassesNormalizedLimitAndEncodesCursor(t *testing.T) {
	next := pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ID: uuid.New()}
	stub := &inboxStub{rows: []models.Notification{{ID: uuid.New()}}, next: &next}
	svc, err := NewService(stub)
	require.NoError(t, err)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 500})
	require.NoError(t, err)
	require.Len(t, stub.listed, 1)
	assert.Equal(t, pagination.MaxLimit, stub.listed[0].Limit)

	decoded, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, next.ID, decoded.ID)
	assert.True(t, next.CreatedAt.Equal(decoded.CreatedAt))
}

func TestListRejectsBadInput(t *testing.T) {
	svc, err := NewService(&inboxStub{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestMarkReadMapsRepositoryResults(t *testing.T) {
	ctx := context.Background()

	stub := &inboxStub{mark: notificationMarkResult{Found: true, Updated: true}}
	svc, _ := NewService(stub)
	require.NoError(t, svc.MarkRead(ctx, uuid.New(), uuid.New()))

	// Already read still counts as found.
	stub.mark = notificationMarkResult{Found: true}
	require.NoError(t, svc.MarkRead(ctx, uuid.New(), uuid.New()))

	stub.mark = notificationMarkResult{}
	err := svc.MarkRead(ctx, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	stub.err = errors.New("db down")
	err = svc.MarkRead(ctx, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	err = svc.MarkRead(ctx, uuid.New(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestMarkAllReadReportsCount(t *testing.T) {
	stub := &inboxStub{marked: 3}
	svc, _ := NewService(stub)

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	stub.err = errors.New("db down")
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestListPagesThroughInbox(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	userID := uuid.New()
	seedInbox(t, conn, userID, 5, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	seen := map[uuid.UUID]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), 2)
		for _, item := range page.Items {
			assert.False(t, seen[item.ID], "notification %s listed twice", item.ID)
			seen[item.ID] = true
		}
		pages++
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
		require.Less(t, pages, 5)
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}

func TestDeleteReadBeforeKeepsUnreadAndRecent(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()
	old := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cutoff := old.Add(24 * time.Hour)

	stale := seedInbox(t, conn, userID, 2, old)
	recent := seedInbox(t, conn, userID, 1, cutoff.Add(time.Hour))
	readAt := cutoff.Add(2 * time.Hour)
	require.NoError(t, conn.Model(&models.Notification{}).
		Where("id IN ?", []uuid.UUID{stale[0].ID, recent[0].ID}).
		UpdateColumn("read_at", readAt).Error)

	deleted, err := repo.DeleteReadBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []models.Notification
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, stale[1].ID, remaining[0].ID, "unread rows are kept")
	assert.Equal(t, recent[0].ID, remaining[1].ID, "rows newer than cutoff are kept")
}
