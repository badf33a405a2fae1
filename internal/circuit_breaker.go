package internal

import (
	"slices"
	"sync"
	"time"
)

// CircuitBreaker stops a GuardedStore from calling a remote collapse-state
// backend (Postgres, DSQL, S3) that keeps failing. After threshold failed
// loads or saves within window, every call is refused with CIRCUIT_OPEN for
// openDuration. A missing view key is not a failure.
//
// A nil *CircuitBreaker is valid and never opens.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     []time.Time
	threshold    int
	window       time.Duration
	openDuration time.Duration
	openUntil    time.Time
	now          func() time.Time
}

// NewCircuitBreaker creates a breaker from the storage.resilience settings.
func NewCircuitBreaker(threshold int, window, openDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
		failures:     make([]time.Time, 0, threshold),
		now:          time.Now,
	}
}

// RecordFailure notes a failed store call. Failures older than the window
// are forgotten first.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cutoff := now.Add(-cb.window)
	if i := slices.IndexFunc(cb.failures, func(at time.Time) bool { return at.After(cutoff) }); i < 0 {
		cb.failures = cb.failures[:0]
	} else if i > 0 {
		cb.failures = slices.Delete(cb.failures, 0, i)
	}
	cb.failures = append(cb.failures, now)

	if len(cb.failures) >= cb.threshold {
		cb.openUntil = now.Add(cb.openDuration)
	}
}

// RecordSuccess closes the breaker and forgets past failures.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = cb.failures[:0]
	cb.openUntil = time.Time{}
}

// IsOpen reports whether store calls are currently refused.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb == nil {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.now().Before(cb.openUntil)
}
