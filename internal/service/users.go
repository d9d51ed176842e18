package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/Ilyatxt/bookshop/internal/model"
	"github.com/Ilyatxt/bookshop/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore описывает контракт хранилища пользователей, используемый сервисом.
type UserStore interface {
	Create(ctx context.Context, q repository.Querier, login string, passwordHash []byte) (int64, error)
	FindByLogin(ctx context.Context, q repository.Querier, login string) (*model.User, error)
	LockByID(ctx context.Context, q repository.Querier, id int64) error
}

// DBRunner выдаёт область выполнения SQL в режиме autocommit.
type DBRunner interface {
	Run(ctx context.Context, fn func(q repository.Querier) error) error
}

// UserService реализует регистрацию и аутентификацию пользователей.
type UserService struct {
	db    DBRunner
	users UserStore
}

// NewUserService создаёт сервис пользователей.
func NewUserService(db DBRunner, users UserStore) *UserService {
	return &UserService{db: db, users: users}
}

// Register регистрирует нового пользователя и возвращает его идентификатор.
func (s *UserService) Register(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)

	var id int64
	err := s.db.Run(ctx, func(q repository.Querier) error {
		var err error
		id, err = s.users.Create(ctx, q, login, hashed)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Authenticate проверяет логин и пароль и возвращает идентификатор пользователя.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (int64, error) {
	var u *model.User
	err := s.db.Run(ctx, func(q repository.Querier) error {
		var err error
		u, err = s.users.FindByLogin(ctx, q, login)
		return err
	})
	if err != nil {
		return 0, err
	}

	if !hmac.Equal(hashPassword(login, password), u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

// Lock блокирует строку пользователя до конца текущей транзакции.
func (s *UserService) Lock(ctx context.Context, q repository.Querier, userID int64) error {
	return s.users.LockByID(ctx, q, userID)
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}
