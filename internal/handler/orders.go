package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Ilyatxt/bookshop/internal/middleware"
	"github.com/Ilyatxt/bookshop/internal/model"
)

const defaultPageSize = 10

type entryPayload struct {
	ID        int64           `json:"id,omitempty"`
	BookID    int64           `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	OrderDate  string          `json:"order_date"`
	OrderCode  string          `json:"order_code"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	Entries    []entryPayload  `json:"entries,omitempty"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		OrderDate:  o.OrderDate.Format(time.RFC3339),
		OrderCode:  o.OrderCode,
		TotalPrice: o.TotalPrice,
		Currency:   string(o.Currency),
		Status:     string(o.Status),
	}
	for _, e := range o.Entries {
		resp.Entries = append(resp.Entries, entryPayload{
			ID:        e.ID,
			BookID:    e.BookID,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
		})
	}
	return resp
}

func toOrderResponses(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	return resp
}

type orderRequest struct {
	UserID    int64          `json:"user_id"`
	OrderDate string         `json:"order_date,omitempty"`
	OrderCode string         `json:"order_code,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	Status    string         `json:"status,omitempty"`
	Entries   []entryPayload `json:"entries"`
}

func (req *orderRequest) toModel() (*model.Order, error) {
	o := &model.Order{
		UserID:    req.UserID,
		OrderCode: req.OrderCode,
		Currency:  model.Currency(req.Currency),
		Status:    model.OrderStatus(req.Status),
	}
	if req.Currency == "" {
		o.Currency = model.CurrencyUSD
	}
	if req.OrderDate != "" {
		date, err := time.Parse(time.RFC3339, req.OrderDate)
		if err != nil {
			return nil, err
		}
		o.OrderDate = date
	}
	for _, e := range req.Entries {
		o.Entries = append(o.Entries, model.OrderEntry{
			BookID:    e.BookID,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
		})
	}
	return o, nil
}

func orderIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	return id, err == nil && id > 0
}

// CreateOrder создаёт новый заказ вместе с позициями.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := req.toModel()
	if err != nil || o.UserID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	created, err := h.orders.CreateOrderWithEntries(r.Context(), o)
	if err != nil {
		h.writeError(w, err, "create order error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// UpdateOrder обновляет заказ с полной заменой его позиций.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := req.toModel()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	updated, err := h.orders.UpdateOrderWithEntriesIfExists(r.Context(), id, o)
	if err != nil {
		h.writeError(w, err, "update order error")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

type addItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

// AddItemToOrder добавляет книгу в актуальный заказ текущего пользователя.
func (h *Handler) AddItemToOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.BookID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.orders.AddBookToUserOrder(r.Context(), userID, req.BookID, req.Quantity)
	if err != nil {
		h.writeError(w, err, "add item to order error")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrder возвращает заказ по идентификатору вместе с позициями.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.orders.GetOrderWithEntries(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get order error")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrderByCode возвращает заказ по коду вместе с позициями.
func (h *Handler) GetOrderByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")
	if code == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.orders.GetOrderByCodeWithEntries(r.Context(), code)
	if err != nil {
		h.writeError(w, err, "get order by code error")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type ordersPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int64           `json:"total"`
	TotalPages int64           `json:"total_pages"`
}

// ListOrders возвращает страницу заказов с метаданными пагинации.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}

	orders, err := h.orders.GetOrdersPage(r.Context(), page, size)
	if err != nil {
		h.writeError(w, err, "list orders error")
		return
	}

	total, err := h.orders.GetOrdersCount(r.Context())
	if err != nil {
		h.writeError(w, err, "count orders error")
		return
	}

	h.writeJSON(w, http.StatusOK, ordersPageResponse{
		Orders:     toOrderResponses(orders),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + int64(size) - 1) / int64(size),
	})
}

// ListOrdersByPeriod возвращает заказы за период, границы в формате RFC3339.
func (h *Handler) ListOrdersByPeriod(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.orders.GetOrdersByPeriod(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err, "list orders by period error")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// GetUserOrders возвращает заказы текущего пользователя.
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "get user orders error")
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// GetUserOpenOrders возвращает незавершённые заказы текущего пользователя.
func (h *Handler) GetUserOpenOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.GetUserOrdersByStatuses(r.Context(), userID,
		[]model.OrderStatus{model.OrderStatusNew, model.OrderStatusInProcess})
	if err != nil {
		h.writeError(w, err, "get user open orders error")
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// PayOrder переводит заказ в статус PAID.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, model.OrderStatusPaid)
}

// DeclineOrder переводит заказ в статус DECLINED.
func (h *Handler) DeclineOrder(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, model.OrderStatusDeclined)
}

// ProcessOrder переводит заказ в статус IN_PROCESS.
func (h *Handler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, model.OrderStatusInProcess)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, status model.OrderStatus) {
	id, ok := orderIDParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateOrderStatus(r.Context(), id, status); err != nil {
		h.writeError(w, err, "update order status error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteOrder удаляет заказ вместе со всеми его позициями.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	deleted, err := h.orders.DeleteOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "delete order error")
		return
	}

	if !deleted {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type bookResponse struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// GetBook возвращает книгу каталога по идентификатору.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	b, err := h.orders.GetBookByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get book error")
		return
	}

	h.writeJSON(w, http.StatusOK, bookResponse{
		ID:       b.ID,
		Title:    b.Title,
		Price:    b.Price,
		Currency: string(b.Currency),
	})
}
