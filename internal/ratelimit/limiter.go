package ratelimit

import (
	"context"
	"time"
)

// Policy bounds the number of events per key inside a sliding window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Store keeps per-key event timestamps. Implementations must be safe for
// concurrent use.
type Store interface {
	// Take records an event at now unless the key already holds policy.Limit
	// events newer than now-policy.Window. It reports whether the event was recorded.
	Take(ctx context.Context, key string, now time.Time, policy Policy) (bool, error)
	// Count returns the number of events newer than now-window.
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	// Reset forgets every event for key.
	Reset(ctx context.Context, key string) error
	Close() error
}

// Limiter applies one policy over a store under a key namespace.
type Limiter struct {
	store     Store
	policy    Policy
	namespace string
	now       func() time.Time
}

// New creates a limiter. The limiter owns the store and closes it in Close.
func New(store Store, namespace string, policy Policy) *Limiter {
	if policy.Limit <= 0 {
		policy.Limit = 5
	}
	if policy.Window <= 0 {
		policy.Window = time.Hour
	}
	return &Limiter{store: store, policy: policy, namespace: namespace, now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Policy returns the configured policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow records an event for id and reports whether it fits in the budget.
func (l *Limiter) Allow(ctx context.Context, id string) (bool, error) {
	return l.store.Take(ctx, l.key(id), l.now(), l.policy)
}

// Check is Allow returning ErrRateLimited when over budget.
func (l *Limiter) Check(ctx context.Context, id string) error {
	ok, err := l.Allow(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// Remaining returns how many events id may still record in the current window.
func (l *Limiter) Remaining(ctx context.Context, id string) (int, error) {
	used, err := l.store.Count(ctx, l.key(id), l.now(), l.policy.Window)
	if err != nil {
		return 0, err
	}
	if left := l.policy.Limit - used; left > 0 {
		return left, nil
	}
	return 0, nil
}

// Reset clears the budget for id.
func (l *Limiter) Reset(ctx context.Context, id string) error {
	return l.store.Reset(ctx, l.key(id))
}

// Close releases the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}

func (l *Limiter) key(id string) string {
	if l.namespace == "" {
		return id
	}
	return l.namespace + ":" + id
}
