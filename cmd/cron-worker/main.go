package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/cron"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/payments"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/migrate"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/redis"
)

// The cron worker is started by an external scheduler. Each start runs the
// jobs named in FRESATERRA_CRON_JOBS (all of them when unset), each under its
// own Redis lease, and exits non-zero if any job failed.
func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker failed", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	locker, err := cron.NewRedisLocker(redisClient, cfg.App.Env, cfg.App.Instance(), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(cfg, logg, dbClient, orderMetrics)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locker:   locker,
		Metrics:  cronMetrics,
		Only:     cfg.Cron.Jobs,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": cfg.App.Instance(),
		"jobs":     registry.Names(),
	})
	logg.Info(ctx, "starting cron cycle")

	if err := service.RunOnce(ctx); err != nil {
		return err
	}

	logg.Info(ctx, "cron cycle finished")
	return nil
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, orderMetrics *metrics.OrderMetrics) ([]cron.Job, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	notificationsRepo := notifications.NewRepository(conn)

	inApp, err := notifications.NewInAppNotifier(notificationsRepo)
	if err != nil {
		return nil, err
	}

	sweeper, err := cron.NewOrderExpirationJob(cron.OrderExpirationJobParams{
		Logger:         logg,
		DB:             dbClient,
		Orders:         orders.NewRepository(conn),
		Payments:       payments.NewPendingCloser(payments.NewRepository(conn)),
		Outbox:         emitter,
		Notifier:       notifications.NewDispatcher(inApp, logg),
		Metrics:        orderMetrics,
		PendingTimeout: cfg.Checkout.PendingTimeout,
		BatchSize:      cfg.Checkout.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(conn),
		Retention:   cfg.Cron.OutboxRetention,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	return []cron.Job{sweeper, cleanup, retention}, nil
}
