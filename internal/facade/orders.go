// Package facade объединяет сервисы заказов, позиций и каталога
// в многошаговые операции с транзакционными границами.
package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

// ErrInvalidQuantity возвращается при попытке добавить в заказ неположительное количество книг.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// DB выдаёт области выполнения SQL поверх пула соединений.
type DB interface {
	Run(ctx context.Context, fn func(q repository.Querier) error) error
	InTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// OrderService описывает контракт сервиса заказов, используемый фасадом.
type OrderService interface {
	Create(ctx context.Context, q repository.Querier, o *model.Order) error
	Update(ctx context.Context, q repository.Querier, o *model.Order) error
	UpdateStatus(ctx context.Context, q repository.Querier, id int64, status model.OrderStatus) error
	Delete(ctx context.Context, q repository.Querier, id int64) (bool, error)
	All(ctx context.Context, q repository.Querier) ([]model.Order, error)
	Page(ctx context.Context, q repository.Querier, page, size int) ([]model.Order, error)
	Count(ctx context.Context, q repository.Querier) (int64, error)
	ByID(ctx context.Context, q repository.Querier, id int64) (*model.Order, error)
	ByUser(ctx context.Context, q repository.Querier, userID int64) ([]model.Order, error)
	ByUserAndStatuses(ctx context.Context, q repository.Querier, userID int64, statuses []model.OrderStatus) ([]model.Order, error)
	ByCode(ctx context.Context, q repository.Querier, code string) (*model.Order, error)
	ByDateRange(ctx context.Context, q repository.Querier, from, to time.Time) ([]model.Order, error)
}

// EntryService описывает контракт сервиса позиций заказа, используемый фасадом.
type EntryService interface {
	ByOrderID(ctx context.Context, q repository.Querier, orderID int64) ([]model.OrderEntry, error)
	Create(ctx context.Context, q repository.Querier, e *model.OrderEntry) error
	CreateAll(ctx context.Context, q repository.Querier, entries []model.OrderEntry) error
	DeleteByOrderID(ctx context.Context, q repository.Querier, orderID int64) (int64, error)
}

// BookService описывает контракт каталога книг, используемый фасадом.
type BookService interface {
	ByID(ctx context.Context, q repository.Querier, id int64) (*model.Book, error)
}

// UserLocker блокирует строку пользователя для сериализации конкурентных
// изменений его заказов.
type UserLocker interface {
	Lock(ctx context.Context, q repository.Querier, userID int64) error
}

// OrderFacade оркестрирует многошаговые операции над заказами и их позициями.
type OrderFacade struct {
	db      DB
	orders  OrderService
	entries EntryService
	books   BookService
	users   UserLocker
	log     *zap.Logger
}

// NewOrderFacade создаёт фасад заказов.
func NewOrderFacade(db DB, orders OrderService, entries EntryService, books BookService, users UserLocker, log *zap.Logger) *OrderFacade {
	return &OrderFacade{
		db:      db,
		orders:  orders,
		entries: entries,
		books:   books,
		users:   users,
		log:     log,
	}
}

// newOrderCode генерирует уникальный человекочитаемый код заказа.
func newOrderCode() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateOrderWithEntries сохраняет заказ вместе с позициями в одной транзакции.
// Идентификатор заказа проставляется всем позициям, итоговая сумма
// пересчитывается из позиций.
func (f *OrderFacade) CreateOrderWithEntries(ctx context.Context, o *model.Order) (*model.Order, error) {
	if o.OrderCode == "" {
		o.OrderCode = newOrderCode()
	}
	o.TotalPrice = model.EntriesTotal(o.Entries)

	err := f.db.InTx(ctx, func(q repository.Querier) error {
		if err := f.orders.Create(ctx, q, o); err != nil {
			return err
		}

		for i := range o.Entries {
			o.Entries[i].OrderID = o.ID
		}

		if len(o.Entries) > 0 {
			if err := f.entries.CreateAll(ctx, q, o.Entries); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("order created", zap.Int64("orderID", o.ID), zap.String("orderCode", o.OrderCode))
	return o, nil
}

// UpdateOrderWithEntries обновляет заказ и полностью заменяет его позиции:
// существующие удаляются, переданные вставляются заново. Вся операция
// выполняется в одной транзакции.
func (f *OrderFacade) UpdateOrderWithEntries(ctx context.Context, o *model.Order) (*model.Order, error) {
	o.TotalPrice = model.EntriesTotal(o.Entries)

	err := f.db.InTx(ctx, func(q repository.Querier) error {
		return f.replaceOrderAndEntries(ctx, q, o)
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("order updated", zap.Int64("orderID", o.ID))
	return o, nil
}

// UpdateOrderWithEntriesIfExists обновляет заказ, предварительно проверив его
// существование: для отсутствующего заказа возвращается ErrOrderNotFound
// вместо ошибки полного обновления.
func (f *OrderFacade) UpdateOrderWithEntriesIfExists(ctx context.Context, id int64, o *model.Order) (*model.Order, error) {
	o.ID = id
	o.TotalPrice = model.EntriesTotal(o.Entries)

	err := f.db.InTx(ctx, func(q repository.Querier) error {
		if _, err := f.orders.ByID(ctx, q, id); err != nil {
			return err
		}
		return f.replaceOrderAndEntries(ctx, q, o)
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("order updated", zap.Int64("orderID", o.ID))
	return o, nil
}

func (f *OrderFacade) replaceOrderAndEntries(ctx context.Context, q repository.Querier, o *model.Order) error {
	if err := f.orders.Update(ctx, q, o); err != nil {
		return err
	}

	if _, err := f.entries.DeleteByOrderID(ctx, q, o.ID); err != nil {
		return err
	}

	for i := range o.Entries {
		o.Entries[i].OrderID = o.ID
	}

	if len(o.Entries) > 0 {
		if err := f.entries.CreateAll(ctx, q, o.Entries); err != nil {
			return err
		}
	}

	return nil
}

// AddBookToUserOrder добавляет книгу в актуальный заказ пользователя.
// Актуальным считается самый свежий заказ со статусом, отличным от PAID и
// DECLINED; если такого нет, создаётся новый заказ со статусом NEW.
// Строка пользователя блокируется на время транзакции, поэтому два
// конкурентных вызова не создадут два открытых заказа и не потеряют
// инкремент итоговой суммы.
func (f *OrderFacade) AddBookToUserOrder(ctx context.Context, userID, bookID int64, quantity int) (*model.Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var result *model.Order
	err := f.db.InTx(ctx, func(q repository.Querier) error {
		if err := f.users.Lock(ctx, q, userID); err != nil {
			return err
		}

		userOrders, err := f.orders.ByUser(ctx, q, userID)
		if err != nil {
			return err
		}

		// Заказы отсортированы от новых к старым, берём самый свежий открытый.
		var open *model.Order
		for i := range userOrders {
			if userOrders[i].IsOpen() {
				open = &userOrders[i]
				break
			}
		}

		book, err := f.books.ByID(ctx, q, bookID)
		if err != nil {
			return err
		}

		entry := model.OrderEntry{
			BookID:    bookID,
			Quantity:  quantity,
			UnitPrice: book.Price,
		}

		if open == nil {
			o := &model.Order{
				UserID:     userID,
				OrderDate:  time.Now(),
				OrderCode:  newOrderCode(),
				TotalPrice: entry.LineTotal(),
				Currency:   book.Currency,
				Status:     model.OrderStatusNew,
			}
			if err := f.orders.Create(ctx, q, o); err != nil {
				return err
			}

			entry.OrderID = o.ID
			if err := f.entries.Create(ctx, q, &entry); err != nil {
				return err
			}

			o.Entries = []model.OrderEntry{entry}
			result = o
			return nil
		}

		entry.OrderID = open.ID
		if err := f.entries.Create(ctx, q, &entry); err != nil {
			return err
		}

		open.TotalPrice = open.TotalPrice.Add(entry.LineTotal())
		if err := f.orders.Update(ctx, q, open); err != nil {
			return err
		}

		entries, err := f.entries.ByOrderID(ctx, q, open.ID)
		if err != nil {
			return err
		}
		open.Entries = entries

		result = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("book added to order",
		zap.Int64("userID", userID),
		zap.Int64("bookID", bookID),
		zap.Int64("orderID", result.ID))
	return result, nil
}

// UpdateOrderStatus переводит заказ в новый статус.
func (f *OrderFacade) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return f.db.InTx(ctx, func(q repository.Querier) error {
		return f.orders.UpdateStatus(ctx, q, id, status)
	})
}

// DeleteOrder удаляет заказ со всеми его позициями и сообщает, существовал ли он.
func (f *OrderFacade) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := f.db.InTx(ctx, func(q repository.Querier) error {
		var err error
		deleted, err = f.orders.Delete(ctx, q, id)
		return err
	})
	if err != nil {
		return false, err
	}

	f.log.Info("order deleted", zap.Int64("orderID", id), zap.Bool("existed", deleted))
	return deleted, nil
}

// GetOrderWithEntries возвращает заказ вместе с его позициями.
func (f *OrderFacade) GetOrderWithEntries(ctx context.Context, id int64) (*model.Order, error) {
	var o *model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		o, err = f.orders.ByID(ctx, q, id)
		if err != nil {
			return err
		}
		o.Entries, err = f.entries.ByOrderID(ctx, q, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrderByCodeWithEntries возвращает заказ по коду вместе с его позициями.
func (f *OrderFacade) GetOrderByCodeWithEntries(ctx context.Context, code string) (*model.Order, error) {
	var o *model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		o, err = f.orders.ByCode(ctx, q, code)
		if err != nil {
			return err
		}
		o.Entries, err = f.entries.ByOrderID(ctx, q, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetUserOrders возвращает заказы пользователя.
func (f *OrderFacade) GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	var orders []model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		orders, err = f.orders.ByUser(ctx, q, userID)
		return err
	})
	return orders, err
}

// GetUserOrdersByStatuses возвращает заказы пользователя с одним из указанных статусов.
func (f *OrderFacade) GetUserOrdersByStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		orders, err = f.orders.ByUserAndStatuses(ctx, q, userID, statuses)
		return err
	})
	return orders, err
}

// GetOrdersPage возвращает страницу заказов.
func (f *OrderFacade) GetOrdersPage(ctx context.Context, page, size int) ([]model.Order, error) {
	var orders []model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		orders, err = f.orders.Page(ctx, q, page, size)
		return err
	})
	return orders, err
}

// GetOrdersCount возвращает общее количество заказов.
func (f *OrderFacade) GetOrdersCount(ctx context.Context) (int64, error) {
	var count int64
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		count, err = f.orders.Count(ctx, q)
		return err
	})
	return count, err
}

// GetOrdersByPeriod возвращает заказы за период.
func (f *OrderFacade) GetOrdersByPeriod(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		orders, err = f.orders.ByDateRange(ctx, q, from, to)
		return err
	})
	return orders, err
}

// GetBookByID возвращает книгу каталога по идентификатору.
func (f *OrderFacade) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	var b *model.Book
	err := f.db.Run(ctx, func(q repository.Querier) error {
		var err error
		b, err = f.books.ByID(ctx, q, id)
		return err
	})
	return b, err
}
