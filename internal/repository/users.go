package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ilyatxt/bookshop/internal/model"
)

// UserStore предоставляет доступ к таблице пользователей.
type UserStore struct{}

// NewUserStore создаёт хранилище пользователей.
func NewUserStore() *UserStore {
	return &UserStore{}
}

// Create создаёт нового пользователя и возвращает его идентификатор.
func (s *UserStore) Create(ctx context.Context, q Querier, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// FindByLogin возвращает пользователя по логину.
func (s *UserStore) FindByLogin(ctx context.Context, q Querier, login string) (*model.User, error) {
	var u model.User
	err := q.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// LockByID блокирует строку пользователя до конца текущей транзакции.
// Используется для сериализации конкурентных изменений заказов одного пользователя.
func (s *UserStore) LockByID(ctx context.Context, q Querier, id int64) error {
	var dummy int
	err := q.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrUserNotFound, id)
		}
		return fmt.Errorf("lock user for update: %w", err)
	}
	return nil
}
