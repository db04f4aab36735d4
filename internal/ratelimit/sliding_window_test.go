package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSlidingWindowRejectsSixthChange(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	w := NewSlidingWindowWithClock(5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		q := w.Allow("alice")
		assert.True(t, q.Allowed, "change %d should be allowed", i+1)
		assert.Equal(t, 4-i, q.Remaining)
		clock.Advance(time.Second)
	}

	q := w.Allow("alice")
	assert.False(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)
	// Oldest event was at 12:00:00, now is 12:00:05
	assert.Equal(t, 55*time.Second, q.RetryAfter)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC), q.ResetAt)

	// Other actors have their own window
	assert.True(t, w.Allow("bob").Allowed)
}

func TestSlidingWindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	w := NewSlidingWindowWithClock(2, time.Minute, clock.Now)

	assert.True(t, w.Allow("alice").Allowed)
	clock.Advance(30 * time.Second)
	assert.True(t, w.Allow("alice").Allowed)
	assert.False(t, w.Allow("alice").Allowed)

	// The first event leaves the window; the second is still inside it
	clock.Advance(30 * time.Second)
	q := w.Allow("alice")
	assert.True(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)
	assert.False(t, w.Allow("alice").Allowed)

	clock.Advance(time.Minute)
	assert.True(t, w.Allow("alice").Allowed)
}

func TestSlidingWindowRejectedCallsDoNotCount(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	w := NewSlidingWindowWithClock(1, time.Minute, clock.Now)

	assert.True(t, w.Allow("alice").Allowed)
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		assert.False(t, w.Allow("alice").Allowed)
	}
	clock.Advance(50 * time.Second)
	assert.True(t, w.Allow("alice").Allowed)
}

func TestSlidingWindowPeek(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	w := NewSlidingWindowWithClock(3, time.Minute, clock.Now)

	q := w.Peek("alice")
	assert.True(t, q.Allowed)
	assert.Equal(t, 3, q.Remaining)
	assert.Equal(t, 3, q.Limit)

	w.Allow("alice")
	w.Allow("alice")
	q = w.Peek("alice")
	assert.Equal(t, 1, q.Remaining)

	// Peek never records an event
	q = w.Peek("alice")
	assert.Equal(t, 1, q.Remaining)
}

func TestSlidingWindowConcurrentCallers(t *testing.T) {
	w := NewSlidingWindow(5, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Allow("alice").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}
