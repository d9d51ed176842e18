// Package pool реализует пул соединений с базой данных фиксированного размера.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSize размер пула по умолчанию.
	DefaultSize = 10
	// DefaultAcquireTimeout время ожидания свободного соединения по умолчанию.
	DefaultAcquireTimeout = 10 * time.Second
)

// ErrPoolExhausted возвращается, когда свободное соединение не появилось за отведённое время.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ErrPoolClosed возвращается при попытке получить соединение из закрытого пула.
var ErrPoolClosed = errors.New("connection pool closed")

// Conn описывает физическое соединение, управляемое пулом.
type Conn interface {
	// IsClosed сообщает, закрыто ли соединение.
	IsClosed() bool
	// Close закрывает физическое соединение.
	Close(ctx context.Context) error
	// Reset приводит соединение в безопасное состояние перед возвратом в пул.
	Reset(ctx context.Context) error
}

// Factory открывает новое физическое соединение.
type Factory func(ctx context.Context) (Conn, error)

// Pool управляет фиксированным набором переиспользуемых соединений.
// Свободные соединения хранятся в канале, выданные учитываются в отдельном
// множестве под мьютексом.
type Pool struct {
	factory Factory
	timeout time.Duration
	log     *zap.Logger

	idle chan Conn

	mu     sync.Mutex
	leased map[Conn]struct{}
	closed bool
}

// New создаёт пул и сразу открывает size соединений.
// Ошибка открытия отдельного соединения логируется и не прерывает инициализацию
// остальных; ошибка возвращается только если не удалось открыть ни одного.
func New(ctx context.Context, factory Factory, size int, timeout time.Duration, log *zap.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	p := &Pool{
		factory: factory,
		timeout: timeout,
		log:     log,
		idle:    make(chan Conn, size),
		leased:  make(map[Conn]struct{}, size),
	}

	var lastErr error
	for i := 0; i < size; i++ {
		conn, err := factory(ctx)
		if err != nil {
			p.log.Error("failed to open initial connection", zap.Error(err))
			lastErr = err
			continue
		}
		p.idle <- conn
	}

	if len(p.idle) == 0 {
		return nil, fmt.Errorf("initialize pool: %w", lastErr)
	}

	p.log.Info("connection pool initialized", zap.Int("size", len(p.idle)))
	return p, nil
}

// Acquire выдаёт соединение из пула, ожидая не дольше настроенного таймаута.
// Мертвое соединение из свободного набора прозрачно заменяется новым.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	var conn Conn
	select {
	case conn = <-p.idle:
	case <-timer.C:
		p.log.Error("acquire timed out", zap.Duration("timeout", p.timeout))
		return nil, fmt.Errorf("%w: no connection became available in %s", ErrPoolExhausted, p.timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrPoolExhausted, ctx.Err())
	}

	if conn.IsClosed() {
		p.log.Warn("idle connection is closed, opening replacement")
		replacement, err := p.factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("replace dead connection: %w", err)
		}
		conn = replacement
	}

	p.mu.Lock()
	if p.closed {
		// Пул закрылся, пока соединение доставалось из свободного набора.
		p.mu.Unlock()
		p.closeConn(ctx, conn)
		return nil, ErrPoolClosed
	}
	p.leased[conn] = struct{}{}
	p.mu.Unlock()

	return &Lease{pool: p, conn: conn}, nil
}

// release возвращает соединение в свободный набор после сброса его состояния.
// Возврат закрытого или чужого соединения — no-op с записью в лог.
func (p *Pool) release(ctx context.Context, conn Conn) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	_, ok := p.leased[conn]
	if ok {
		delete(p.leased, conn)
	}
	p.mu.Unlock()

	if !ok {
		p.log.Warn("attempt to release a connection not leased from this pool")
		return
	}

	if conn.IsClosed() {
		p.log.Warn("attempt to release a closed connection")
		return
	}

	if err := p.Reset(ctx, conn); err != nil {
		p.log.Error("failed to reset connection on release", zap.Error(err))
		_ = conn.Close(ctx)
		return
	}

	select {
	case p.idle <- conn:
	default:
		// Свободный набор полон, соединение пулу не принадлежит.
		p.log.Warn("idle set is full, closing released connection")
		_ = conn.Close(ctx)
	}
}

// Reset приводит соединение в состояние по умолчанию перед повторной выдачей.
func (p *Pool) Reset(ctx context.Context, conn Conn) error {
	return conn.Reset(ctx)
}

// CloseAll закрывает все соединения пула: и свободные, и выданные.
// Ошибка закрытия отдельного соединения логируется и не прерывает обход остальных.
func (p *Pool) CloseAll(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	leased := make([]Conn, 0, len(p.leased))
	for conn := range p.leased {
		leased = append(leased, conn)
	}
	p.leased = make(map[Conn]struct{})
	p.mu.Unlock()

	for _, conn := range leased {
		p.closeConn(ctx, conn)
	}

	for {
		select {
		case conn := <-p.idle:
			p.closeConn(ctx, conn)
		default:
			p.log.Info("all connections closed")
			return
		}
	}
}

func (p *Pool) closeConn(ctx context.Context, conn Conn) {
	if conn.IsClosed() {
		return
	}
	if err := conn.Close(ctx); err != nil {
		p.log.Error("failed to close connection", zap.Error(err))
	}
}

// Available возвращает количество свободных соединений.
func (p *Pool) Available() int {
	return len(p.idle)
}

// InUse возвращает количество выданных соединений.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leased)
}

// Size возвращает общее количество соединений, отслеживаемых пулом.
func (p *Pool) Size() int {
	return p.Available() + p.InUse()
}

// Lease представляет временное владение соединением между Acquire и Close.
// Закрытие аренды возвращает соединение в пул, а не закрывает его физически.
type Lease struct {
	pool *Pool
	conn Conn
	once sync.Once
}

// Conn возвращает арендованное соединение.
func (l *Lease) Conn() Conn {
	return l.conn
}

// Close возвращает соединение в пул. Повторный вызов — no-op.
func (l *Lease) Close(ctx context.Context) {
	l.once.Do(func() {
		l.pool.release(ctx, l.conn)
	})
}
