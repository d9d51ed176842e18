package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ilyatxt/bookshop/internal/model"
)

// EntryStore предоставляет доступ к таблице позиций заказа.
type EntryStore struct{}

// NewEntryStore создаёт хранилище позиций заказа.
func NewEntryStore() *EntryStore {
	return &EntryStore{}
}

// FindByOrderID возвращает все позиции указанного заказа.
func (s *EntryStore) FindByOrderID(ctx context.Context, q Querier, orderID int64) ([]model.OrderEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT id, order_id, book_id, quantity, unit_price
		 FROM order_entry
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("select order entries: %w", err)
	}
	defer rows.Close()

	var entries []model.OrderEntry
	for rows.Next() {
		var e model.OrderEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.BookID, &e.Quantity, &e.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// FindByID возвращает позицию заказа по идентификатору.
func (s *EntryStore) FindByID(ctx context.Context, q Querier, id int64) (*model.OrderEntry, error) {
	var e model.OrderEntry
	err := q.QueryRow(ctx,
		`SELECT id, order_id, book_id, quantity, unit_price FROM order_entry WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.OrderID, &e.BookID, &e.Quantity, &e.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("select order entry: %w", err)
	}
	return &e, nil
}

// Save сохраняет новую позицию и проставляет ей присвоенный базой идентификатор.
func (s *EntryStore) Save(ctx context.Context, q Querier, e *model.OrderEntry) error {
	err := q.QueryRow(ctx,
		`INSERT INTO order_entry (order_id, book_id, quantity, unit_price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.OrderID, e.BookID, e.Quantity, e.UnitPrice,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert order entry: %w", err)
	}
	return nil
}

// SaveAll сохраняет позиции по одной, проставляя идентификаторы на месте.
func (s *EntryStore) SaveAll(ctx context.Context, q Querier, entries []model.OrderEntry) error {
	for i := range entries {
		if err := s.Save(ctx, q, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update полностью заменяет строку позиции. Отсутствие затронутых строк
// считается ошибкой.
func (s *EntryStore) Update(ctx context.Context, q Querier, e *model.OrderEntry) error {
	tag, err := q.Exec(ctx,
		`UPDATE order_entry
		 SET order_id = $2, book_id = $3, quantity = $4, unit_price = $5
		 WHERE id = $1`,
		e.ID, e.OrderID, e.BookID, e.Quantity, e.UnitPrice)
	if err != nil {
		return fmt.Errorf("update order entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrEntryNotFound, e.ID)
	}
	return nil
}

// DeleteByID удаляет позицию и сообщает, существовала ли строка.
func (s *EntryStore) DeleteByID(ctx context.Context, q Querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM order_entry WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByOrderID удаляет все позиции заказа и возвращает их количество.
func (s *EntryStore) DeleteByOrderID(ctx context.Context, q Querier, orderID int64) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM order_entry WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("delete order entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
