package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock steps time manually.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(limit int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_040, 0)}
	return New(limit, WithClock(clock.Now)), clock
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(60)

	for i := 0; i < 60; i++ {
		require.True(t, l.Allow("client-a"), "call %d should be allowed", i+1)
	}
}

func TestDenies61stCallInSameWindow(t *testing.T) {
	l, _ := newTestLimiter(60)

	for i := 0; i < 60; i++ {
		require.True(t, l.Allow("client-a"))
	}
	assert.False(t, l.Allow("client-a"), "61st call in the same window must be denied")
	assert.False(t, l.Allow("client-a"), "denied calls must not increment the count")
}

func TestNewWindowResetsCount(t *testing.T) {
	l, clock := newTestLimiter(60)

	for i := 0; i < 60; i++ {
		require.True(t, l.Allow("client-a"))
	}
	require.False(t, l.Allow("client-a"))

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("client-a"), "first call in a fresh window must be allowed")
}

func TestClientsAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(2)

	require.True(t, l.Allow("client-a"))
	require.True(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-a"))

	assert.True(t, l.Allow("client-b"), "client-b must not be throttled by client-a")
}

func TestStaleEntriesArePurged(t *testing.T) {
	l, clock := newTestLimiter(10)

	l.Allow("client-a")
	l.Allow("client-b")
	require.Equal(t, 2, l.Size())

	// Entries one window old survive; older ones are garbage.
	clock.Advance(2 * time.Minute)
	l.Allow("client-c")
	assert.Equal(t, 1, l.Size())
}

func TestZeroLimitFallsBackToDefault(t *testing.T) {
	l := New(0)
	assert.Equal(t, DefaultLimit, l.Limit())
}

func TestConcurrentAllowIsConsistent(t *testing.T) {
	l, _ := newTestLimiter(100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed, "exactly the limit may pass within one window")
}
