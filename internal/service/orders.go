// Package service реализует бизнес-логику подсистемы заказов книжного магазина.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

// ErrInvalidStatusTransition возвращается при попытке недопустимого перехода статуса заказа.
var ErrInvalidStatusTransition = errors.New("invalid order status transition")

// OrderStore описывает контракт хранилища заказов, используемый сервисом.
type OrderStore interface {
	FindAll(ctx context.Context, q repository.Querier) ([]model.Order, error)
	FindPage(ctx context.Context, q repository.Querier, page, size int) ([]model.Order, error)
	CountAll(ctx context.Context, q repository.Querier) (int64, error)
	FindByID(ctx context.Context, q repository.Querier, id int64) (*model.Order, error)
	FindByUserID(ctx context.Context, q repository.Querier, userID int64) ([]model.Order, error)
	FindByUserIDAndStatuses(ctx context.Context, q repository.Querier, userID int64, statuses []model.OrderStatus) ([]model.Order, error)
	FindByCode(ctx context.Context, q repository.Querier, code string) (*model.Order, error)
	FindByDateRange(ctx context.Context, q repository.Querier, from, to time.Time) ([]model.Order, error)
	Save(ctx context.Context, q repository.Querier, o *model.Order) error
	Update(ctx context.Context, q repository.Querier, o *model.Order) error
	UpdateStatus(ctx context.Context, q repository.Querier, id int64, status model.OrderStatus) (int64, error)
	DeleteByID(ctx context.Context, q repository.Querier, id int64) (bool, error)
}

// OrderService реализует операции над заказами.
type OrderService struct {
	orders  OrderStore
	entries EntryStore
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(orders OrderStore, entries EntryStore) *OrderService {
	return &OrderService{orders: orders, entries: entries}
}

// Create сохраняет новый заказ. Незаданный статус по умолчанию становится NEW,
// незаданная дата — текущим временем.
func (s *OrderService) Create(ctx context.Context, q repository.Querier, o *model.Order) error {
	if o.Status == "" {
		o.Status = model.OrderStatusNew
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now()
	}
	return s.orders.Save(ctx, q, o)
}

// Update полностью заменяет строку заказа.
func (s *OrderService) Update(ctx context.Context, q repository.Querier, o *model.Order) error {
	return s.orders.Update(ctx, q, o)
}

// UpdateStatus переводит заказ в новый статус, проверяя допустимость перехода.
// Недопустимый переход возвращает ErrInvalidStatusTransition, отсутствующий
// заказ — ошибку хранилища.
func (s *OrderService) UpdateStatus(ctx context.Context, q repository.Querier, id int64, status model.OrderStatus) error {
	current, err := s.orders.FindByID(ctx, q, id)
	if err != nil {
		return err
	}

	if !current.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}

	rows, err := s.orders.UpdateStatus(ctx, q, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", repository.ErrOrderNotFound, id)
	}

	return nil
}

// Delete удаляет заказ вместе со всеми его позициями и сообщает,
// существовала ли строка заказа.
func (s *OrderService) Delete(ctx context.Context, q repository.Querier, id int64) (bool, error) {
	if _, err := s.entries.DeleteByOrderID(ctx, q, id); err != nil {
		return false, err
	}
	return s.orders.DeleteByID(ctx, q, id)
}

// All возвращает все заказы.
func (s *OrderService) All(ctx context.Context, q repository.Querier) ([]model.Order, error) {
	return s.orders.FindAll(ctx, q)
}

// Page возвращает страницу заказов.
func (s *OrderService) Page(ctx context.Context, q repository.Querier, page, size int) ([]model.Order, error) {
	return s.orders.FindPage(ctx, q, page, size)
}

// Count возвращает общее количество заказов.
func (s *OrderService) Count(ctx context.Context, q repository.Querier) (int64, error) {
	return s.orders.CountAll(ctx, q)
}

// ByID возвращает заказ по идентификатору.
func (s *OrderService) ByID(ctx context.Context, q repository.Querier, id int64) (*model.Order, error) {
	return s.orders.FindByID(ctx, q, id)
}

// ByUser возвращает заказы пользователя.
func (s *OrderService) ByUser(ctx context.Context, q repository.Querier, userID int64) ([]model.Order, error) {
	return s.orders.FindByUserID(ctx, q, userID)
}

// ByUserAndStatuses возвращает заказы пользователя с одним из указанных статусов.
func (s *OrderService) ByUserAndStatuses(ctx context.Context, q repository.Querier, userID int64, statuses []model.OrderStatus) ([]model.Order, error) {
	return s.orders.FindByUserIDAndStatuses(ctx, q, userID, statuses)
}

// ByCode возвращает заказ по коду.
func (s *OrderService) ByCode(ctx context.Context, q repository.Querier, code string) (*model.Order, error) {
	return s.orders.FindByCode(ctx, q, code)
}

// ByDateRange возвращает заказы за период.
func (s *OrderService) ByDateRange(ctx context.Context, q repository.Querier, from, to time.Time) ([]model.Order, error) {
	return s.orders.FindByDateRange(ctx, q, from, to)
}
