package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubConn struct {
	mu         sync.Mutex
	closed     bool
	resetCalls int
	resetErr   error
	closeErr   error
}

func (c *stubConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *stubConn) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetCalls++
	return c.resetErr
}

func (c *stubConn) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *stubConn) resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetCalls
}

type countingFactory struct {
	mu    sync.Mutex
	conns []*stubConn
}

func (f *countingFactory) factory(ctx context.Context) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &stubConn{}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *countingFactory) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func newTestPool(t *testing.T, size int, timeout time.Duration) (*Pool, *countingFactory) {
	t.Helper()

	f := &countingFactory{}
	p, err := New(context.Background(), f.factory, size, timeout, zap.NewNop())
	if err != nil {
		t.Fatalf("New pool error: %v", err)
	}
	return p, f
}

func TestNew_EagerlyOpensAllConnections(t *testing.T) {
	p, f := newTestPool(t, 3, time.Second)

	if f.opened() != 3 {
		t.Fatalf("opened = %d, want 3", f.opened())
	}
	if p.Available() != 3 {
		t.Fatalf("Available = %d, want 3", p.Available())
	}
}

func TestNew_ToleratesPartialInitFailure(t *testing.T) {
	calls := 0
	factory := func(ctx context.Context) (Conn, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection refused")
		}
		return &stubConn{}, nil
	}

	p, err := New(context.Background(), factory, 3, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("New pool error: %v", err)
	}
	if p.Available() != 2 {
		t.Fatalf("Available = %d, want 2", p.Available())
	}
}

func TestNew_FailsWhenNoConnectionOpened(t *testing.T) {
	factory := func(ctx context.Context) (Conn, error) {
		return nil, errors.New("bad credentials")
	}

	if _, err := New(context.Background(), factory, 2, time.Second, zap.NewNop()); err == nil {
		t.Fatalf("expected error when no connection could be opened")
	}
}

func TestAcquire_ExhaustionTimesOutThenReleaseUnblocks(t *testing.T) {
	p, _ := newTestPool(t, 2, 100*time.Millisecond)
	ctx := context.Background()

	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	second, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire error: %v", err)
	}

	start := time.Now()
	_, err = p.Acquire(ctx)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("third Acquire error = %v, want ErrPoolExhausted", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("third Acquire returned after %s, want at least the configured timeout", elapsed)
	}

	first.Close(ctx)

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
	lease.Close(ctx)
	second.Close(ctx)
}

func TestAcquire_ContextCancellation(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Second)

	lease, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer lease.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("Acquire error = %v, want ErrPoolExhausted", err)
	}
}

func TestAcquire_ReplacesDeadIdleConnection(t *testing.T) {
	p, f := newTestPool(t, 1, time.Second)
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	dead := lease.Conn().(*stubConn)
	lease.Close(ctx)

	// Соединение умирает, пока лежит в свободном наборе.
	dead.markClosed()

	replacementLease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer replacementLease.Close(ctx)

	if replacementLease.Conn() == Conn(dead) {
		t.Fatalf("expected a replacement connection, got the dead one back")
	}
	if f.opened() != 2 {
		t.Fatalf("opened = %d, want 2 (initial plus replacement)", f.opened())
	}
}

func TestRelease_ResetsConnection(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Second)
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	conn := lease.Conn().(*stubConn)
	lease.Close(ctx)

	if conn.resets() != 1 {
		t.Fatalf("resets = %d, want 1", conn.resets())
	}
	if p.Available() != 1 {
		t.Fatalf("Available = %d, want 1", p.Available())
	}
}

func TestRelease_DoubleCloseIsNoOp(t *testing.T) {
	p, _ := newTestPool(t, 2, time.Second)
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	lease.Close(ctx)
	lease.Close(ctx)

	if p.Available() != 2 {
		t.Fatalf("Available = %d, want 2", p.Available())
	}
	if p.InUse() != 0 {
		t.Fatalf("InUse = %d, want 0", p.InUse())
	}
}

func TestRelease_ForeignConnectionIsNoOp(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Second)
	ctx := context.Background()

	p.release(ctx, &stubConn{})

	if p.Available() != 1 {
		t.Fatalf("Available = %d, want 1", p.Available())
	}
	if p.InUse() != 0 {
		t.Fatalf("InUse = %d, want 0", p.InUse())
	}
}

func TestRelease_ClosedConnectionIsDropped(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Second)
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	lease.Conn().(*stubConn).markClosed()
	lease.Close(ctx)

	if p.Available() != 0 {
		t.Fatalf("Available = %d, want 0: closed connection must not be returned", p.Available())
	}
}

func TestCloseAll_ClosesIdleAndLeased(t *testing.T) {
	p, f := newTestPool(t, 2, time.Second)
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	_ = lease

	p.CloseAll(ctx)

	for i, conn := range f.conns {
		if !conn.IsClosed() {
			t.Fatalf("connection %d is not closed after CloseAll", i)
		}
	}

	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Acquire after CloseAll error = %v, want ErrPoolClosed", err)
	}
}

func TestAcquire_PoolClosedMidAcquireClosesConnection(t *testing.T) {
	ctx := context.Background()

	initial := &stubConn{}
	replacement := &stubConn{}

	var p *Pool
	calls := 0
	factory := func(ctx context.Context) (Conn, error) {
		calls++
		if calls == 1 {
			return initial, nil
		}
		// Пул закрывается, пока открывается замена мёртвого соединения.
		p.CloseAll(ctx)
		return replacement, nil
	}

	var err error
	p, err = New(ctx, factory, 1, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("New pool error: %v", err)
	}

	initial.markClosed()

	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Acquire error = %v, want ErrPoolClosed", err)
	}
	if !replacement.IsClosed() {
		t.Fatalf("connection acquired from a closed pool must be closed, not leased")
	}
	if p.InUse() != 0 {
		t.Fatalf("InUse = %d, want 0 after closed pool rejected the lease", p.InUse())
	}
}

func TestCloseAll_ToleratesCloseErrors(t *testing.T) {
	first := &stubConn{closeErr: errors.New("network down")}
	second := &stubConn{}
	conns := []Conn{first, second}
	i := 0
	factory := func(ctx context.Context) (Conn, error) {
		c := conns[i]
		i++
		return c, nil
	}

	p, err := New(context.Background(), factory, 2, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("New pool error: %v", err)
	}

	p.CloseAll(context.Background())

	if !second.IsClosed() {
		t.Fatalf("close error on one connection must not stop the sweep")
	}
}
