// Package ratelimit throttles configuration changes per actor.
package ratelimit

import (
	"sync"
	"time"
)

// Quota describes an actor's position in the window after a check
type Quota struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Allowed    bool
}

// SlidingWindow allows at most limit events in any window-long interval for each key
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time
}

// NewSlidingWindow creates a limiter using the wall clock
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return NewSlidingWindowWithClock(limit, window, time.Now)
}

// NewSlidingWindowWithClock creates a limiter with an injected clock
func NewSlidingWindowWithClock(limit int, window time.Duration, now func() time.Time) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    now,
		events: make(map[string][]time.Time),
	}
}

func (w *SlidingWindow) Limit() int {
	return w.limit
}

func (w *SlidingWindow) Window() time.Duration {
	return w.window
}

// Allow records an event for key unless the window is already full
func (w *SlidingWindow) Allow(key string) Quota {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	queue := w.prune(key, now)
	if len(queue) >= w.limit {
		return w.quota(queue, now, false)
	}
	queue = append(queue, now)
	w.events[key] = queue
	return w.quota(queue, now, true)
}

// Peek reports the current quota for key without recording an event
func (w *SlidingWindow) Peek(key string) Quota {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	queue := w.prune(key, now)
	return w.quota(queue, now, len(queue) < w.limit)
}

// prune drops events that left the window; caller holds mu
func (w *SlidingWindow) prune(key string, now time.Time) []time.Time {
	queue := w.events[key]
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(queue) && !queue[i].After(cutoff) {
		i++
	}
	queue = queue[i:]
	if len(queue) == 0 {
		delete(w.events, key)
		return nil
	}
	w.events[key] = queue
	return queue
}

func (w *SlidingWindow) quota(queue []time.Time, now time.Time, allowed bool) Quota {
	q := Quota{
		Limit:     w.limit,
		Remaining: w.limit - len(queue),
		ResetAt:   now.Add(w.window),
		Allowed:   allowed,
	}
	if len(queue) > 0 {
		q.ResetAt = queue[0].Add(w.window)
	}
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	if !allowed {
		q.RetryAfter = q.ResetAt.Sub(now)
	}
	return q
}
