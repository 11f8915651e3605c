// Package ratelimit implements a fixed per-minute request window keyed by
// client identity. It is a hard cutoff: requests at the limit are denied
// immediately with no smoothing or carry-over between windows.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultLimit is the default number of requests allowed per client per minute.
const DefaultLimit = 60

// windowState tracks one client's count inside the current minute window.
type windowState struct {
	window int64
	count  int
}

// Limiter is a fixed-window rate limiter. The state map is the only mutable
// state shared across requests in the gateway; every read-modify-write runs
// inside a single critical section so concurrent requests from one client
// observe a consistent monotonic count.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*windowState
	limit   int
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects a clock, used by tests to step through windows.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing limit requests per client per minute.
// A non-positive limit falls back to DefaultLimit.
func New(limit int, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		clients: make(map[string]*windowState),
		limit:   limit,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the client may proceed, counting the request against
// its current window when it may. Entries whose window is more than one
// minute stale are purged on every call to bound memory.
func (l *Limiter) Allow(clientKey string) bool {
	window := l.now().Unix() / 60

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, st := range l.clients {
		if st.window < window-1 {
			delete(l.clients, key)
		}
	}

	st, ok := l.clients[clientKey]
	if !ok {
		st = &windowState{window: window}
		l.clients[clientKey] = st
	}

	if st.window != window {
		st.window = window
		st.count = 0
	}

	if st.count >= l.limit {
		return false
	}

	st.count++
	return true
}

// Limit returns the configured per-minute limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Size returns the number of tracked clients, for observability.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
