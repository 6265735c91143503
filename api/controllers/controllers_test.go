package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/middleware"
	checkoutsvc "github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/checkout"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/cron"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/notifications"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/db/models"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/enums"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

// serve mounts h on pattern so chi URL params resolve, and runs req as userID.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, target, body string, userID uuid.UUID, role enums.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != uuid.Nil {
		ctx := middleware.WithUserID(req.Context(), userID.String())
		ctx = middleware.WithRole(ctx, string(role))
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}

type checkoutStub struct {
	userID uuid.UUID
	input  checkoutsvc.CreateOrderInput
	err    error
}

func (s *checkoutStub) CreateOrder(ctx context.Context, userID uuid.UUID, input checkoutsvc.CreateOrderInput) (*checkoutsvc.Result, error) {
	s.userID = userID
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutsvc.Result{
		Order: &models.Order{
			ID:        uuid.New(),
			UserID:    userID,
			AddressID: input.AddressID,
			Status:    enums.OrderStatusPending,
			Total:     decimal.RequireFromString("25"),
			LineItems: []models.OrderLineItem{{
				ProductID:   input.Items[0].ProductID,
				ProductName: "Fresa 1kg",
				Quantity:    input.Items[0].Quantity,
				UnitPrice:   decimal.RequireFromString("12.5"),
				Subtotal:    decimal.RequireFromString("25"),
			}},
		},
		PaymentID:   uuid.New(),
		IntentID:    "link-1",
		RedirectURL: "https://square.link/u/abc123",
	}, nil
}

func TestCheckoutCreatesOrder(t *testing.T) {
	stub := &checkoutStub{}
	userID := uuid.New()
	addressID := uuid.New()
	productID := uuid.New()
	body := `{"address_id":"` + addressID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":2}]}`

	rec := serve(t, http.MethodPost, "/checkout", Checkout(stub, testLogger()), "/checkout", body, userID, enums.UserRoleCustomer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if stub.userID != userID || stub.input.AddressID != addressID || len(stub.input.Items) != 1 {
		t.Fatalf("unexpected service input %+v", stub.input)
	}

	var out struct {
		Order struct {
			Status string `json:"status"`
			Total  string `json:"total"`
			Items  []struct {
				UnitPrice string `json:"unit_price"`
			} `json:"items"`
		} `json:"order"`
		RedirectURL string `json:"redirect_url"`
	}
	decodeData(t, rec, &out)
	if out.Order.Status != "pending" || out.Order.Total != "25.00" || out.RedirectURL != "https://square.link/u/abc123" {
		t.Fatalf("unexpected response %+v", out)
	}
	if len(out.Order.Items) != 1 || out.Order.Items[0].UnitPrice != "12.50" {
		t.Fatalf("unexpected items %+v", out.Order.Items)
	}
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	stub := &checkoutStub{}
	h := Checkout(stub, testLogger())

	rec := serve(t, http.MethodPost, "/checkout", h, "/checkout", `{"address_id":"`+uuid.NewString()+`","items":[]}`, uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty items: expected 400 got %d", rec.Code)
	}

	rec = serve(t, http.MethodPost, "/checkout", h, "/checkout", `{"items":[]}`, uuid.Nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no user: expected 401 got %d", rec.Code)
	}
}

func TestCheckoutMapsInsufficientStock(t *testing.T) {
	stub := &checkoutStub{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	body := `{"address_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`

	rec := serve(t, http.MethodPost, "/checkout", Checkout(stub, testLogger()), "/checkout", body, uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "insufficient stock") {
		t.Fatalf("expected passthrough message, got %s", rec.Body.String())
	}
}

type notificationsStub struct {
	params   notifications.ListParams
	marked   []uuid.UUID
	markErr  error
	allCount int64
}

func (s *notificationsStub) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = params
	return &notifications.ListResult{
		Items:  []models.Notification{{ID: uuid.New(), UserID: params.UserID, Title: "Pedido confirmado"}},
		Cursor: "next-page",
	}, nil
}

func (s *notificationsStub) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	s.marked = append(s.marked, notificationID)
	return s.markErr
}

func (s *notificationsStub) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.allCount, nil
}

func TestListNotifications(t *testing.T) {
	stub := &notificationsStub{}
	userID := uuid.New()
	h := ListNotifications(stub, testLogger())

	rec := serve(t, http.MethodGet, "/notifications", h, "/notifications?limit=5&unreadOnly=true&cursor=abc", "", userID, enums.UserRoleCustomer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if stub.params.UserID != userID || stub.params.Limit != 5 || !stub.params.UnreadOnly || stub.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", stub.params)
	}
	var out struct {
		Items  []map[string]any `json:"items"`
		Cursor string           `json:"cursor"`
	}
	decodeData(t, rec, &out)
	if len(out.Items) != 1 || out.Cursor != "next-page" {
		t.Fatalf("unexpected response %+v", out)
	}

	rec = serve(t, http.MethodGet, "/notifications", h, "/notifications?limit=500", "", userID, enums.UserRoleCustomer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit out of range: expected 400 got %d", rec.Code)
	}
	rec = serve(t, http.MethodGet, "/notifications", h, "/notifications?unreadOnly=maybe", "", userID, enums.UserRoleCustomer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad unreadOnly: expected 400 got %d", rec.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	stub := &notificationsStub{}
	id := uuid.New()
	h := MarkNotificationRead(stub, testLogger())

	rec := serve(t, http.MethodPost, "/notifications/{notificationId}/read", h, "/notifications/"+id.String()+"/read", "", uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(stub.marked) != 1 || stub.marked[0] != id {
		t.Fatalf("unexpected marked ids %v", stub.marked)
	}

	rec = serve(t, http.MethodPost, "/notifications/{notificationId}/read", h, "/notifications/not-a-uuid/read", "", uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400 got %d", rec.Code)
	}

	stub.markErr = pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	rec = serve(t, http.MethodPost, "/notifications/{notificationId}/read", h, "/notifications/"+id.String()+"/read", "", uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign notification: expected 404 got %d", rec.Code)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	stub := &notificationsStub{allCount: 3}
	rec := serve(t, http.MethodPost, "/notifications/read-all", MarkAllNotificationsRead(stub, testLogger()), "/notifications/read-all", "", uuid.New(), enums.UserRoleCustomer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var out map[string]int64
	decodeData(t, rec, &out)
	if out["updated"] != 3 {
		t.Fatalf("expected 3 updated, got %v", out)
	}
}

type sweeperStub struct {
	result cron.SweepResult
	err    error
}

func (s sweeperStub) Sweep(context.Context) (cron.SweepResult, error) {
	return s.result, s.err
}

func TestAdminSweepOrders(t *testing.T) {
	admin := uuid.New()

	rec := serve(t, http.MethodPost, "/sweep", AdminSweepOrders(sweeperStub{result: cron.SweepResult{SweptCount: 4}}, testLogger()), "/sweep", "", admin, enums.UserRoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var out sweepResponse
	decodeData(t, rec, &out)
	if out.SweptCount != 4 || out.Failed != 0 {
		t.Fatalf("unexpected response %+v", out)
	}

	partial := sweeperStub{
		result: cron.SweepResult{SweptCount: 2},
		err:    multierr.Combine(errors.New("order a"), errors.New("order b")),
	}
	rec = serve(t, http.MethodPost, "/sweep", AdminSweepOrders(partial, testLogger()), "/sweep", "", admin, enums.UserRoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("partial: expected 200 got %d", rec.Code)
	}
	decodeData(t, rec, &out)
	if out.SweptCount != 2 || out.Failed != 2 {
		t.Fatalf("unexpected partial response %+v", out)
	}

	total := sweeperStub{err: errors.New("db down")}
	rec = serve(t, http.MethodPost, "/sweep", AdminSweepOrders(total, testLogger()), "/sweep", "", admin, enums.UserRoleAdmin)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("total failure: expected 503 got %d", rec.Code)
	}
}

type restockStub struct {
	qty int
}

func (s *restockStub) Restock(ctx context.Context, productID uuid.UUID, qty int, adminID uuid.UUID) (*models.InventoryRecord, error) {
	s.qty = qty
	return &models.InventoryRecord{ProductID: productID, AvailableQty: 10 + qty}, nil
}

func TestAdminRestock(t *testing.T) {
	stub := &restockStub{}
	productID := uuid.New()
	h := AdminRestock(stub, testLogger())
	pattern := "/inventory/{productId}/restock"
	target := "/inventory/" + productID.String() + "/restock"

	rec := serve(t, http.MethodPost, pattern, h, target, `{"quantity":5}`, uuid.New(), enums.UserRoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	var out restockResponse
	decodeData(t, rec, &out)
	if out.ProductID != productID || out.AvailableQty != 15 || stub.qty != 5 {
		t.Fatalf("unexpected response %+v", out)
	}

	for _, body := range []string{`{"quantity":0}`, `{"quantity":-3}`, `{"quantity":100001}`, `{"qty":1}`} {
		rec = serve(t, http.MethodPost, pattern, h, target, body, uuid.New(), enums.UserRoleAdmin)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", body, rec.Code)
		}
	}
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := serve(t, http.MethodGet, "/ready", HealthReady(cfg, map[string]Pinger{"database": pingStub{}}, testLogger()), "/ready", "", uuid.Nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	deps := map[string]Pinger{"database": pingStub{}, "redis": pingStub{err: errors.New("refused")}}
	rec = serve(t, http.MethodGet, "/ready", HealthReady(cfg, deps, testLogger()), "/ready", "", uuid.Nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("expected redis check in details, got %s", rec.Body.String())
	}
}
