package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ilyatxt/bookshop/internal/model"
)

const orderColumns = `id, user_id, order_date, order_code, total_price, currency, status`

// OrderStore предоставляет доступ к таблице заказов.
type OrderStore struct{}

// NewOrderStore создаёт хранилище заказов.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		currency string
		status   string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.OrderCode, &o.TotalPrice, &currency, &status); err != nil {
		return nil, err
	}
	o.Currency = model.Currency(currency)
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// FindAll возвращает все заказы, от новых к старым.
func (s *OrderStore) FindAll(ctx context.Context, q Querier) ([]model.Order, error) {
	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return collectOrders(rows)
}

// FindPage возвращает страницу заказов. Нумерация страниц начинается с нуля.
func (s *OrderStore) FindPage(ctx context.Context, q Querier, page, size int) ([]model.Order, error) {
	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC LIMIT $1 OFFSET $2`,
		size, page*size)
	if err != nil {
		return nil, fmt.Errorf("select orders page: %w", err)
	}
	return collectOrders(rows)
}

// CountAll возвращает общее количество заказов.
func (s *OrderStore) CountAll(ctx context.Context, q Querier) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// FindByID возвращает заказ по идентификатору.
func (s *OrderStore) FindByID(ctx context.Context, q Querier, id int64) (*model.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return o, nil
}

// FindByUserID возвращает заказы пользователя, от новых к старым.
func (s *OrderStore) FindByUserID(ctx context.Context, q Querier, userID int64) ([]model.Order, error) {
	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY order_date DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select user orders: %w", err)
	}
	return collectOrders(rows)
}

// FindByUserIDAndStatuses возвращает заказы пользователя с одним из указанных
// статусов, от новых к старым.
func (s *OrderStore) FindByUserIDAndStatuses(ctx context.Context, q Querier, userID int64, statuses []model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1 AND status = ANY($2)
		 ORDER BY order_date DESC`,
		userID, names)
	if err != nil {
		return nil, fmt.Errorf("select user orders by statuses: %w", err)
	}
	return collectOrders(rows)
}

// FindByCode возвращает заказ по уникальному коду.
func (s *OrderStore) FindByCode(ctx context.Context, q Querier, code string) (*model.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order by code: %w", err)
	}
	return o, nil
}

// FindByDateRange возвращает заказы за период, от новых к старым.
func (s *OrderStore) FindByDateRange(ctx context.Context, q Querier, from, to time.Time) ([]model.Order, error) {
	rows, err := q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE order_date BETWEEN $1 AND $2
		 ORDER BY order_date DESC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("select orders by period: %w", err)
	}
	return collectOrders(rows)
}

// Save сохраняет новый заказ и проставляет ему присвоенный базой идентификатор.
func (s *OrderStore) Save(ctx context.Context, q Querier, o *model.Order) error {
	err := q.QueryRow(ctx,
		`INSERT INTO orders (user_id, order_date, order_code, total_price, currency, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		o.UserID, o.OrderDate, o.OrderCode, o.TotalPrice, string(o.Currency), string(o.Status),
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrOrderCodeExists, o.OrderCode)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Update полностью заменяет строку заказа. Отсутствие затронутых строк
// считается ошибкой: заказа с таким идентификатором нет.
func (s *OrderStore) Update(ctx context.Context, q Querier, o *model.Order) error {
	tag, err := q.Exec(ctx,
		`UPDATE orders
		 SET user_id = $2, order_date = $3, order_code = $4, total_price = $5, currency = $6, status = $7
		 WHERE id = $1`,
		o.ID, o.UserID, o.OrderDate, o.OrderCode, o.TotalPrice, string(o.Currency), string(o.Status))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, o.ID)
	}
	return nil
}

// UpdateStatus обновляет только колонку статуса и возвращает число затронутых строк.
func (s *OrderStore) UpdateStatus(ctx context.Context, q Querier, id int64, status model.OrderStatus) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status))
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByID удаляет заказ и сообщает, существовала ли строка.
func (s *OrderStore) DeleteByID(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
