package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/controllers"
	webhookcontrollers "github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/controllers/webhooks"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/middleware"
	checkoutsvc "github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/checkout"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/cron"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/shipments"
	squarewebhook "github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/webhooks/square"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/redis"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/square"
)

// Dependencies are the services the HTTP surface dispatches to.
type Dependencies struct {
	DB    controllers.Pinger
	Redis *redis.Client

	Ledger        *inventory.Ledger
	Restocker     *inventory.Restocker
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Shipments     shipments.Service
	Notifications notifications.Service
	Sweeper       *cron.OrderExpirationJob

	Square        *square.Client
	SquareWebhook *squarewebhook.Service
	WebhookGuard  *squarewebhook.IdempotencyGuard

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must stay a nil interface for the middlewares.
	var (
		idemStore  redis.IdempotencyStore
		rateStore  middleware.RateLimitStore
		redisCheck controllers.Pinger
	)
	if deps.Redis != nil {
		idemStore = deps.Redis
		rateStore = deps.Redis
		redisCheck = deps.Redis
	}

	// Same for the optional pointer services: unset ones answer 500.
	availability := controllers.CheckAvailability(nil, logg)
	if deps.Ledger != nil {
		availability = controllers.CheckAvailability(deps.Ledger, logg)
	}
	restock := controllers.AdminRestock(nil, logg)
	if deps.Restocker != nil {
		restock = controllers.AdminRestock(deps.Restocker, logg)
	}
	sweep := controllers.AdminSweepOrders(nil, logg)
	if deps.Sweeper != nil {
		sweep = controllers.AdminSweepOrders(deps.Sweeper, logg)
	}
	squareHook := webhookcontrollers.SquareWebhook(nil, nil, nil, logg)
	if deps.SquareWebhook != nil && deps.Square != nil && deps.WebhookGuard != nil {
		squareHook = webhookcontrollers.SquareWebhook(deps.SquareWebhook, deps.Square, deps.WebhookGuard, logg)
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.Checkout.RateLimitWindow,
		cfg.Checkout.RateLimitPerIP,
		cfg.Checkout.RateLimitPerUser,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(deps.DB, redisCheck), logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", squareHook)
	})

	r.Post("/api/v1/inventory/availability", availability)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.With(middleware.RateLimit(checkoutPolicy, rateStore, logg)).
			Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.GetOrder(deps.Orders, deps.Shipments, logg))
			r.Post("/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Post("/orders/sweep", sweep)
			r.Post("/orders/{orderId}/status", controllers.AdminOrderStatus(deps.Orders, logg))
			r.Post("/inventory/{productId}/restock", restock)
		})
	})

	return r
}

func readinessDeps(db controllers.Pinger, cache controllers.Pinger) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if db != nil {
		deps["database"] = db
	}
	if cache != nil {
		deps["redis"] = cache
	}
	return deps
}
