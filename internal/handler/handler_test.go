package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ilyatxt/bookshop/internal/facade"
	"github.com/Ilyatxt/bookshop/internal/middleware"
	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/pool"
	"github.com/Ilyatxt/bookshop/internal/repository"
	"github.com/Ilyatxt/bookshop/internal/service"
)

type stubFacade struct {
	createResp *model.Order
	createErr  error

	updateResp *model.Order
	updateErr  error

	addItemResp *model.Order
	addItemErr  error

	statusErr error

	deleteExisted bool
	deleteErr     error

	orderResp *model.Order
	orderErr  error

	userOrdersResp []model.Order
	userOrdersErr  error

	pageResp []model.Order
	pageErr  error
	count    int64
	countErr error

	periodResp []model.Order
	periodErr  error

	bookResp *model.Book
	bookErr  error
}

func (s *stubFacade) CreateOrderWithEntries(ctx context.Context, o *model.Order) (*model.Order, error) {
	return s.createResp, s.createErr
}

func (s *stubFacade) UpdateOrderWithEntriesIfExists(ctx context.Context, id int64, o *model.Order) (*model.Order, error) {
	return s.updateResp, s.updateErr
}

func (s *stubFacade) AddBookToUserOrder(ctx context.Context, userID, bookID int64, quantity int) (*model.Order, error) {
	return s.addItemResp, s.addItemErr
}

func (s *stubFacade) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return s.statusErr
}

func (s *stubFacade) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	return s.deleteExisted, s.deleteErr
}

func (s *stubFacade) GetOrderWithEntries(ctx context.Context, id int64) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubFacade) GetOrderByCodeWithEntries(ctx context.Context, code string) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubFacade) GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.userOrdersResp, s.userOrdersErr
}

func (s *stubFacade) GetUserOrdersByStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus) ([]model.Order, error) {
	return s.userOrdersResp, s.userOrdersErr
}

func (s *stubFacade) GetOrdersPage(ctx context.Context, page, size int) ([]model.Order, error) {
	return s.pageResp, s.pageErr
}

func (s *stubFacade) GetOrdersCount(ctx context.Context) (int64, error) {
	return s.count, s.countErr
}

func (s *stubFacade) GetOrdersByPeriod(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return s.periodResp, s.periodErr
}

func (s *stubFacade) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	return s.bookResp, s.bookErr
}

type stubUsers struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authErr    error
}

func (s *stubUsers) Register(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubUsers) Authenticate(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func newTestHandler(t *testing.T, orders OrderFacade, users UserService) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(orders, users, logger, auth)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleOrder() *model.Order {
	return &model.Order{
		ID:         1,
		UserID:     1,
		OrderDate:  time.Now().UTC(),
		OrderCode:  "ORD-TEST",
		TotalPrice: decimal.RequireFromString("10.00"),
		Currency:   model.CurrencyUSD,
		Status:     model.OrderStatusNew,
	}
}

func TestRegister_Success(t *testing.T) {
	users := &stubUsers{registerUserID: 42}
	h := newTestHandler(t, &stubFacade{}, users)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatal("expected auth cookie to be set")
	}
}

func TestRegister_ConflictOnDuplicate(t *testing.T) {
	users := &stubUsers{registerErr: repository.ErrUserExists}
	h := newTestHandler(t, &stubFacade{}, users)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLogin_UnauthorizedOnBadCredentials(t *testing.T) {
	users := &stubUsers{authErr: service.ErrInvalidCredentials}
	h := newTestHandler(t, &stubFacade{}, users)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "wrong"})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestCreateOrder_Created(t *testing.T) {
	orders := &stubFacade{createResp: sampleOrder()}
	h := newTestHandler(t, orders, &stubUsers{})

	body, _ := json.Marshal(orderRequest{
		UserID: 1,
		Entries: []entryPayload{
			{BookID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestCreateOrder_BadBody(t *testing.T) {
	h := newTestHandler(t, &stubFacade{}, &stubUsers{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := &stubFacade{orderErr: repository.ErrOrderNotFound}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/99", nil)
	req = withURLParam(req, "orderID", "99")
	rec := httptest.NewRecorder()

	h.GetOrder(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPayOrder_ConflictOnIllegalTransition(t *testing.T) {
	orders := &stubFacade{statusErr: service.ErrInvalidStatusTransition}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/1/pay", nil)
	req = withURLParam(req, "orderID", "1")
	rec := httptest.NewRecorder()

	h.PayOrder(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestDeleteOrder_NoContent(t *testing.T) {
	orders := &stubFacade{deleteExisted: true}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil)
	req = withURLParam(req, "orderID", "1")
	rec := httptest.NewRecorder()

	h.DeleteOrder(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestDeleteOrder_NotFound(t *testing.T) {
	orders := &stubFacade{deleteExisted: false}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/99", nil)
	req = withURLParam(req, "orderID", "99")
	rec := httptest.NewRecorder()

	h.DeleteOrder(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAddItemToOrder_BadQuantity(t *testing.T) {
	orders := &stubFacade{addItemErr: facade.ErrInvalidQuantity}
	h := newTestHandler(t, orders, &stubUsers{})

	body, _ := json.Marshal(addItemRequest{BookID: 10, Quantity: 0})

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders/items", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.authMiddleware.SetAuthCookie(rec, 1)
	req.AddCookie(rec.Result().Cookies()[0])

	respRec := httptest.NewRecorder()
	handlerWithAuth := h.authMiddleware.Middleware(http.HandlerFunc(h.AddItemToOrder))
	handlerWithAuth.ServeHTTP(respRec, req)

	if respRec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", respRec.Code, http.StatusBadRequest)
	}
}

func TestGetUserOrders_NoContent(t *testing.T) {
	orders := &stubFacade{userOrdersResp: []model.Order{}}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/orders", nil)
	rec := httptest.NewRecorder()

	h.authMiddleware.SetAuthCookie(rec, 1)
	req.AddCookie(rec.Result().Cookies()[0])

	respRec := httptest.NewRecorder()
	handlerWithAuth := h.authMiddleware.Middleware(http.HandlerFunc(h.GetUserOrders))
	handlerWithAuth.ServeHTTP(respRec, req)

	if respRec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", respRec.Code, http.StatusNoContent)
	}
}

func TestGetUserOrders_Unauthorized(t *testing.T) {
	h := newTestHandler(t, &stubFacade{}, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/orders", nil)
	rec := httptest.NewRecorder()

	handlerWithAuth := h.authMiddleware.Middleware(http.HandlerFunc(h.GetUserOrders))
	handlerWithAuth.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	orders := &stubFacade{
		pageResp: []model.Order{*sampleOrder()},
		count:    25,
	}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders?page=1&size=10", nil)
	rec := httptest.NewRecorder()

	h.ListOrders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp ordersPageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 25 || resp.TotalPages != 3 {
		t.Errorf("total = %d, totalPages = %d, want 25 and 3", resp.Total, resp.TotalPages)
	}
}

func TestListOrdersByPeriod_BadBounds(t *testing.T) {
	h := newTestHandler(t, &stubFacade{}, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/period?from=not-a-date&to=2026-01-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()

	h.ListOrdersByPeriod(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetOrder_ServiceUnavailableOnExhaustedPool(t *testing.T) {
	orders := &stubFacade{orderErr: pool.ErrPoolExhausted}
	h := newTestHandler(t, orders, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
	req = withURLParam(req, "orderID", "1")
	rec := httptest.NewRecorder()

	h.GetOrder(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
