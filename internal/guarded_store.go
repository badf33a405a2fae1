package internal

import (
	"context"
	"time"

	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// GuardedStore wraps a remote CollapseStore with a per-call timeout and a
// circuit breaker. While the breaker is open calls fail fast with a
// CIRCUIT_OPEN error. Not-found results count as successes.
type GuardedStore struct {
	next    propgrid.CollapseStore
	breaker *CircuitBreaker
	backend string
	timeout time.Duration
}

// NewGuardedStore guards next. A nil breaker disables the breaker; a zero
// timeout disables the timeout.
func NewGuardedStore(next propgrid.CollapseStore, backend string, breaker *CircuitBreaker, timeout time.Duration) *GuardedStore {
	return &GuardedStore{next: next, breaker: breaker, backend: backend, timeout: timeout}
}

func (g *GuardedStore) Save(ctx context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	if g.breaker.IsOpen() {
		return nil, propgrid.NewCircuitOpenError(g.backend)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	snap, err := g.next.Save(ctx, key, names)
	g.record("save", key, err)
	return snap, err
}

func (g *GuardedStore) Load(ctx context.Context, key string) (*propgrid.Snapshot, error) {
	if g.breaker.IsOpen() {
		return nil, propgrid.NewCircuitOpenError(g.backend)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	snap, err := g.next.Load(ctx, key)
	g.record("load", key, err)
	return snap, err
}

func (g *GuardedStore) Delete(ctx context.Context, key string) error {
	if g.breaker.IsOpen() {
		return propgrid.NewCircuitOpenError(g.backend)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	err := g.next.Delete(ctx, key)
	g.record("delete", key, err)
	return err
}

func (g *GuardedStore) Close() error {
	return g.next.Close()
}

func (g *GuardedStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *GuardedStore) record(op, key string, err error) {
	if err == nil || propgrid.IsNotFoundError(err) {
		g.breaker.RecordSuccess()
		return
	}
	g.breaker.RecordFailure()
	zap.S().Warnw("collapse state store failed", "backend", g.backend, "op", op, "key", key, "err", err,
		"circuitOpen", g.breaker.IsOpen())
}
