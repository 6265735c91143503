package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

const (
	defaultRetention          = 30 * 24 * time.Hour
	defaultOutboxMaxAttempts  = 10
	notificationCleanupJobKey = "notification-cleanup"
	outboxRetentionJobKey     = "outbox-retention"
)

// pruneFunc deletes rows older than cutoff inside tx and reports how many went.
type pruneFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows that aged past a retention window in a single
// transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention time.Duration
	prune     pruneFunc
	fields    map[string]any
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.prune(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	fields := map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention cleanup complete")
	return nil
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, retention time.Duration, prune pruneFunc) (*retentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		retention: retention,
		prune:     prune,
		now:       time.Now,
	}, nil
}

// NotificationCleanupJobParams configure the read-notification pruner.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notifications.Repository
	Retention  time.Duration
}

// NewNotificationCleanupJob prunes in-app notifications that were read before
// the retention window. Unread ones are kept however old.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	repo := params.Repository
	job, err := newRetentionJob(notificationCleanupJobKey, params.Logger, params.DB, params.Retention,
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.WithTx(tx).DeleteReadBefore(ctx, cutoff)
		})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// OutboxRetentionJobParams configure the outbox pruner.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPruner
	Retention   time.Duration
	MaxAttempts int
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox events, and events parked at
// the publisher's attempt ceiling, once they age past retention.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxMaxAttempts
	}
	repo := params.Repository
	job, err := newRetentionJob(outboxRetentionJobKey, params.Logger, params.DB, params.Retention,
		func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(tx, cutoff, maxAttempts)
		})
	if err != nil {
		return nil, err
	}
	job.fields = map[string]any{"max_attempts": maxAttempts}
	return job, nil
}
