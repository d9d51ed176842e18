package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ilyatxt/bookshop/internal/model"
)

// BookStore предоставляет доступ к каталогу книг в объёме,
// необходимом подсистеме заказов.
type BookStore struct{}

// NewBookStore создаёт хранилище книг.
func NewBookStore() *BookStore {
	return &BookStore{}
}

// FindByID возвращает книгу по идентификатору.
func (s *BookStore) FindByID(ctx context.Context, q Querier, id int64) (*model.Book, error) {
	var (
		b        model.Book
		currency string
	)
	err := q.QueryRow(ctx,
		`SELECT id, title, price, currency, created_at FROM books WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Title, &b.Price, &currency, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	b.Currency = model.Currency(currency)
	return &b, nil
}
