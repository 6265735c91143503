package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/inventory"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/orders"
	pkgAuth "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/auth"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/dbtest"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubOrders struct {
	order *models.Order
	calls []string
}

func (s *stubOrders) Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	s.calls = append(s.calls, "get")
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if actor.Role != enums.UserRoleAdmin && actor.UserID != s.order.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrders) CancelOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	s.calls = append(s.calls, "cancel")
	return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot cancel a delivered order")
}

func (s *stubOrders) AdminTransition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, adminID uuid.UUID) (*models.Order, error) {
	s.calls = append(s.calls, "admin:"+string(to))
	out := *s.order
	out.Status = to
	return &out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "fresaterra", ExpirationMinutes: 30},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func do(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, testLogger(), Dependencies{DB: stubPinger{}})

	rec := do(router, http.MethodGet, "/health/live", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Fresaterra-Env") != "test" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-Fresaterra-Env"))
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}

	rec = do(router, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	down := NewRouter(cfg, testLogger(), Dependencies{DB: stubPinger{err: errors.New("connection refused")}})
	rec = do(down, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with db down: expected 503 got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(testConfig(), testLogger(), Dependencies{
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	})

	do(router, http.MethodGet, "/health/live", "", "")
	rec := do(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fresaterra_http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Dependencies{})
	for _, path := range []string{
		"/api/v1/checkout",
		"/api/v1/orders/" + uuid.NewString() + "/cancel",
		"/api/v1/admin/orders/sweep",
	} {
		rec := do(router, http.MethodPost, path, "", "{}")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, testLogger(), Dependencies{})
	auth := bearer(t, cfg, uuid.New(), enums.UserRoleCustomer)

	rec := do(router, http.MethodPost, "/api/v1/admin/orders/sweep", auth, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestOrderRoutes(t *testing.T) {
	cfg := testConfig()
	owner := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: owner,
		Status: enums.OrderStatusConfirmed,
		Total:  decimal.RequireFromString("41.00"),
	}
	svc := &stubOrders{order: order}
	router := NewRouter(cfg, testLogger(), Dependencies{Orders: svc})

	rec := do(router, http.MethodGet, "/api/v1/orders/"+order.ID.String(), bearer(t, cfg, owner, enums.UserRoleCustomer), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"total":"41.00"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = do(router, http.MethodGet, "/api/v1/orders/"+order.ID.String(), bearer(t, cfg, uuid.New(), enums.UserRoleCustomer), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stranger get: expected 404 got %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/cancel", bearer(t, cfg, owner, enums.UserRoleCustomer), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel: expected 409 got %d", rec.Code)
	}

	admin := bearer(t, cfg, uuid.New(), enums.UserRoleAdmin)
	rec = do(router, http.MethodPost, "/api/v1/admin/orders/"+order.ID.String()+"/status", admin, `{"status":"preparing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls[len(svc.calls)-1] != "admin:preparing" {
		t.Fatalf("unexpected calls %v", svc.calls)
	}

	rec = do(router, http.MethodPost, "/api/v1/admin/orders/"+order.ID.String()+"/status", admin, `{"status":"teleported"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400 got %d", rec.Code)
	}
}

func TestAvailabilityRouteIsPublic(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := inventory.NewLedger(conn, client)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	fresa := dbtest.SeedProduct(t, conn, "Fresa 1kg", "12.50", 3)
	router := NewRouter(testConfig(), testLogger(), Dependencies{Ledger: ledger})

	rec := do(router, http.MethodPost, "/api/v1/inventory/availability", "",
		`{"items":[{"product_id":"`+fresa.ID.String()+`","quantity":5}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"available":false`) {
		t.Fatalf("expected shortfall, got %s", rec.Body.String())
	}
}

func TestAvailabilityRouteRejectsOversizedLines(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := inventory.NewLedger(conn, client)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	fresa := dbtest.SeedProduct(t, conn, "Fresa 1kg", "12.50", 0)
	router := NewRouter(testConfig(), testLogger(), Dependencies{Ledger: ledger})

	line := `{"product_id":"` + fresa.ID.String() + `","quantity":4611686018427387904}`
	rec := do(router, http.MethodPost, "/api/v1/inventory/availability", "", `{"items":[`+line+`,`+line+`]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"available":true`) {
		t.Fatalf("oversized request reported as available: %s", rec.Body.String())
	}
}
