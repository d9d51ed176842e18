package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOrderNotFound возвращается, если заказ с указанным идентификатором или кодом не найден.
var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrEntryNotFound возвращается, если позиция заказа не найдена.
	ErrEntryNotFound = errors.New("order entry not found")
	// ErrBookNotFound возвращается, если книга не найдена.
	ErrBookNotFound = errors.New("book not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("user already exists")
	// ErrOrderCodeExists возвращается при нарушении уникальности кода заказа.
	ErrOrderCodeExists = errors.New("order code already exists")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
