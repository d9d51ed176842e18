// Package handler содержит HTTP-обработчики API книжного магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ilyatxt/bookshop/internal/facade"
	"github.com/Ilyatxt/bookshop/internal/middleware"
	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/pool"
	"github.com/Ilyatxt/bookshop/internal/repository"
	"github.com/Ilyatxt/bookshop/internal/service"
)

// OrderFacade определяет контракт фасада заказов, используемый HTTP-обработчиками.
type OrderFacade interface {
	CreateOrderWithEntries(ctx context.Context, o *model.Order) (*model.Order, error)
	UpdateOrderWithEntriesIfExists(ctx context.Context, id int64, o *model.Order) (*model.Order, error)
	AddBookToUserOrder(ctx context.Context, userID, bookID int64, quantity int) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error
	DeleteOrder(ctx context.Context, id int64) (bool, error)
	GetOrderWithEntries(ctx context.Context, id int64) (*model.Order, error)
	GetOrderByCodeWithEntries(ctx context.Context, code string) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error)
	GetUserOrdersByStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus) ([]model.Order, error)
	GetOrdersPage(ctx context.Context, page, size int) ([]model.Order, error)
	GetOrdersCount(ctx context.Context) (int64, error)
	GetOrdersByPeriod(ctx context.Context, from, to time.Time) ([]model.Order, error)
	GetBookByID(ctx context.Context, id int64) (*model.Book, error)
}

// UserService определяет контракт сервиса пользователей, используемый HTTP-обработчиками.
type UserService interface {
	Register(ctx context.Context, login, password string) (int64, error)
	Authenticate(ctx context.Context, login, password string) (int64, error)
}

// Handler реализует HTTP-обработчики API книжного магазина.
type Handler struct {
	orders         OrderFacade
	users          UserService
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(orders OrderFacade, users UserService, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		orders:         orders,
		users:          users,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeError переводит доменные ошибки в HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, repository.ErrBookNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, repository.ErrOrderCodeExists):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, facade.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidQuantity):
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	case errors.Is(err, pool.ErrPoolExhausted):
		h.logger.Error(logMsg, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		h.logger.Error(logMsg, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.users.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.writeError(w, err, "register user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.users.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.writeError(w, err, "login user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}
