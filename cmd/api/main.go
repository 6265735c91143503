package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/routes"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/checkout"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/cron"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/payments"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/shipments"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/users"
	squarewebhook "github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/webhooks/square"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/migrate"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/outbox"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/redis"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/square"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	webhookGuardScope = "square-webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
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

	squareClient, err := square.NewClient(bootCtx, cfg.Square, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	deps, err := buildDependencies(bootCtx, cfg, logg, dbClient, redisClient, squareClient, orderMetrics)
	if err != nil {
		return err
	}
	deps.Gatherer = registry
	deps.HTTPMetrics = httpMetrics

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": cfg.App.Instance(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDependencies(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	squareClient *square.Client,
	orderMetrics *metrics.OrderMetrics,
) (routes.Dependencies, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	usersRepo := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)

	ledger, err := inventory.NewLedger(conn, dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}
	restocker, err := inventory.NewRestocker(ledger, dbClient, emitter, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationsRepo := notifications.NewRepository(conn)
	inApp, err := notifications.NewInAppNotifier(notificationsRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	dispatcher := notifications.NewDispatcher(inApp, logg)
	notificationService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	carriers, err := shipments.NewCarrierAssigner(cfg.Shipping.FallbackCarrier(), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	shipmentService, err := shipments.NewService(shipments.ServiceParams{
		Repo:     shipments.NewRepository(conn),
		Users:    usersRepo,
		Carriers: carriers,
		Policy:   shipments.NewFlatRatePolicy(cfg.Shipping),
		Outbox:   emitter,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	pendingCloser := payments.NewPendingCloser(paymentsRepo)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      ordersRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Payments:  pendingCloser,
		Stock:     ledger,
		Shipments: shipmentService,
		Notifier:  dispatcher,
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	confirmations, err := payments.NewConfirmationService(payments.ConfirmationParams{
		Tx:        dbClient,
		Orders:    ordersRepo,
		Payments:  paymentsRepo,
		Stock:     ledger,
		Shipments: shipmentService,
		Outbox:    emitter,
		Notifier:  dispatcher,
		Metrics:   orderMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	intents, err := checkout.NewSquareIntents(squareClient)
	if err != nil {
		return routes.Dependencies{}, err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Catalog:  checkout.NewRepository(conn),
		Orders:   ordersRepo,
		Payments: paymentsRepo,
		Users:    usersRepo,
		Stock:    ledger,
		Intents:  intents,
		Outbox:   emitter,
		ReturnURLs: checkout.ReturnURLs{
			Success: cfg.Checkout.SuccessURL,
			Failure: cfg.Checkout.FailureURL,
			Pending: cfg.Checkout.PendingURL,
		},
		Logger: logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	sweeper, err := cron.NewOrderExpirationJob(cron.OrderExpirationJobParams{
		Logger:         logg,
		DB:             dbClient,
		Orders:         ordersRepo,
		Payments:       pendingCloser,
		Outbox:         emitter,
		Notifier:       dispatcher,
		Metrics:        orderMetrics,
		PendingTimeout: cfg.Checkout.PendingTimeout,
		BatchSize:      cfg.Checkout.SweepBatchSize,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Confirmations: confirmations,
		Payments:      squareClient,
		Logger:        logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	guard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, webhookGuardScope)
	if err != nil {
		return routes.Dependencies{}, err
	}

	logg.Info(logg.WithField(ctx, "square_env", squareClient.Environment()), "api dependencies wired")

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Ledger:        ledger,
		Restocker:     restocker,
		Checkout:      checkoutService,
		Orders:        orderService,
		Shipments:     shipmentService,
		Notifications: notificationService,
		Sweeper:       sweeper,
		Square:        squareClient,
		SquareWebhook: webhookService,
		WebhookGuard:  guard,
	}, nil
}
