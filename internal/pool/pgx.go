package pool

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
)

// PgxConn адаптирует *pgx.Conn к интерфейсу Conn пула.
type PgxConn struct {
	*pgx.Conn
}

// Reset откатывает незавершённую транзакцию, чтобы соединение вернулось
// в пул в режиме autocommit.
func (c *PgxConn) Reset(ctx context.Context) error {
	// 'I' означает, что соединение вне транзакции.
	if c.Conn.PgConn().TxStatus() != 'I' {
		if _, err := c.Conn.Exec(ctx, "rollback"); err != nil {
			return fmt.Errorf("rollback stale transaction: %w", err)
		}
	}
	return nil
}

// PgxFactory возвращает фабрику соединений PostgreSQL для указанного DSN.
// На каждом соединении регистрируется кодек decimal для колонок numeric.
func PgxFactory(dsn string) (Factory, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection config: %w", err)
	}

	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.ConnectConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		pgxdecimal.Register(conn.TypeMap())
		return &PgxConn{Conn: conn}, nil
	}, nil
}
