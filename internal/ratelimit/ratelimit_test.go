package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestLimiter(p Policy) (*Limiter, *fakeClock) {
	l := New(p)
	clock := newFakeClock()
	l.now = clock.Now
	return l, clock
}

func TestLimiterAdmitsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(Policy{MaxRequests: 3, Window: time.Minute})

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "fourth request inside the window must be rejected")
}

func TestLimiterWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(Policy{MaxRequests: 2, Window: time.Minute})

	assert.True(t, l.Allow("c"))
	clock.Advance(30 * time.Second)
	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"))

	// 61s after the first request: the first timestamp has expired,
	// the second (30s old in a 60s window) still counts.
	clock.Advance(31 * time.Second)
	assert.True(t, l.Allow("c"))
	assert.False(t, l.Allow("c"), "window holds the 30s-old and the fresh request")
}

func TestLimiterWindowBoundary(t *testing.T) {
	l, clock := newTestLimiter(Policy{MaxRequests: 1, Window: time.Minute})

	assert.True(t, l.Allow("c"))

	// Exactly at the boundary the old timestamp no longer counts:
	// admission requires now-t < window, and here now-t == window.
	clock.Advance(time.Minute)
	assert.True(t, l.Allow("c"))
}

func TestLimiterRejectionNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(Policy{MaxRequests: 1, Window: time.Minute})

	assert.True(t, l.Allow("c"))

	// Hammering a full window must not extend it. If rejections were
	// recorded, the client could lock itself out forever.
	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		assert.False(t, l.Allow("c"))
	}

	clock.Advance(11 * time.Second) // 61s after the single admitted request
	assert.True(t, l.Allow("c"))
}

func TestLimiterClientsIndependent(t *testing.T) {
	l, _ := newTestLimiter(Policy{MaxRequests: 1, Window: time.Minute})

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "one client's budget must not affect another's")
}

// TestLimiterConcurrentAdmission checks the race the mutex exists to prevent:
// many simultaneous requests for a client with K slots left must admit exactly
// K, regardless of interleaving.
func TestLimiterConcurrentAdmission(t *testing.T) {
	const (
		max        = 5
		goroutines = 50
	)
	l := New(Policy{MaxRequests: max, Window: time.Minute})

	var admitted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Allow("burst-client") {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(max), admitted.Load())
}

func TestLimiterCompactsExpiredClients(t *testing.T) {
	l, clock := newTestLimiter(Policy{MaxRequests: 1000, Window: time.Minute})

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("stale"))
	}
	clock.Advance(2 * time.Minute)

	// Trigger a sweep: compactEvery admissions from a different client.
	for i := 0; i < compactEvery; i++ {
		l.Allow("active")
	}

	l.mu.Lock()
	_, staleTracked := l.clients["stale"]
	l.mu.Unlock()
	assert.False(t, staleTracked, "fully expired client should be swept from the table")
}

func TestDefaultPolicies(t *testing.T) {
	run := RunPolicy()
	assert.Equal(t, 20, run.MaxRequests)
	assert.Equal(t, 60, run.WindowSeconds())

	install := InstallPolicy()
	assert.Equal(t, 10, install.MaxRequests)
	assert.Equal(t, 300, install.WindowSeconds())
}
