package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local store. Counts are not shared between
// instances; use RedisStore when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	events  map[string][]time.Time
	windows map[string]time.Duration
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	closed   bool
}

// NewMemoryStore creates the store and starts a janitor that evicts expired
// keys every cleanupInterval. A non-positive interval disables the janitor.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		events:  make(map[string][]time.Time),
		windows: make(map[string]time.Duration),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, now time.Time, policy Policy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	valid := prune(s.events[key], now, policy.Window)
	if len(valid) >= policy.Limit {
		s.events[key] = valid
		return false, nil
	}
	s.events[key] = append(valid, now)
	s.windows[key] = policy.Window
	return true, nil
}

func (s *MemoryStore) Count(_ context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, ts := range s.events[key] {
		if now.Sub(ts) < window {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, key)
	delete(s.windows, key)
	return nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Sweep evicts keys whose events have all left their window.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, events := range s.events {
		valid := prune(events, now, s.windows[key])
		if len(valid) == 0 {
			delete(s.events, key)
			delete(s.windows, key)
			evicted++
			continue
		}
		s.events[key] = valid
	}
	return evicted
}

// Close stops the janitor and drops all state.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.mu.Lock()
		s.closed = true
		s.events = map[string][]time.Time{}
		s.windows = map[string]time.Duration{}
		s.mu.Unlock()
	})
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(s.now())
		case <-s.stop:
			return
		}
	}
}

// prune drops events at or beyond the window edge, reusing the backing array.
func prune(events []time.Time, now time.Time, window time.Duration) []time.Time {
	valid := events[:0]
	for _, ts := range events {
		if now.Sub(ts) < window {
			valid = append(valid, ts)
		}
	}
	return valid
}
