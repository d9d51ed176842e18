// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ilyatxt/bookshop/internal/pool"
)

// Querier описывает минимальный контракт выполнения SQL.
// Ему удовлетворяют и *pgx.Conn, и pgx.Tx, поэтому методы хранилищ
// одинаково работают внутри и вне транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB выдаёт области выполнения SQL поверх пула соединений.
type DB struct {
	pool *pool.Pool
}

// NewDB создаёт обёртку над пулом соединений.
func NewDB(p *pool.Pool) *DB {
	return &DB{pool: p}
}

func (d *DB) conn(ctx context.Context) (*pgx.Conn, *pool.Lease, error) {
	lease, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}

	pc, ok := lease.Conn().(*pool.PgxConn)
	if !ok {
		lease.Close(ctx)
		return nil, nil, errors.New("pool returned a non-postgres connection")
	}

	return pc.Conn, lease, nil
}

// Run выполняет fn на соединении из пула в режиме autocommit.
func (d *DB) Run(ctx context.Context, fn func(q Querier) error) error {
	conn, lease, err := d.conn(ctx)
	if err != nil {
		return err
	}
	defer lease.Close(ctx)

	return fn(conn)
}

// InTx выполняет fn в одной транзакции: ошибка fn откатывает все
// выполненные внутри неё запросы.
func (d *DB) InTx(ctx context.Context, fn func(q Querier) error) error {
	conn, lease, err := d.conn(ctx)
	if err != nil {
		return err
	}
	defer lease.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
