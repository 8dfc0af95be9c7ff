// Package resilience provides the self-protection primitives shared by the
// model gateway and the external API clients: a fixed-window rate limiter
// that paces model calls across all concurrent sessions, and a circuit
// breaker that shields sessions from a flapping monitoring backend.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter is a fixed-window rate limiter: at most Limit calls are
// admitted per Window, counted from the first admission of each window. When
// the current window is full, Wait blocks until the window rolls over. All
// capacity is restored at once at the window boundary — this matches how the
// upstream model quotas are enforced and is a pacing mechanism, not a
// correctness mechanism.
//
// A nil *WindowLimiter, and any limiter with Limit <= 0, admits every call
// immediately. One WindowLimiter is shared process-wide by all sessions.
type WindowLimiter struct {
	limit  int
	window time.Duration

	mu          sync.Mutex
	windowStart time.Time
	admitted    int

	// now is stubbed in tests.
	now func() time.Time
}

// NewWindowLimiter creates a limiter admitting at most limit calls per
// window. limit <= 0 or window <= 0 disables limiting.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Wait blocks until the limiter admits a call or ctx is done. It returns
// ctx.Err() when the context ends first; otherwise nil once admitted.
// Admission order across blocked callers follows wake-up order within the
// next window; no priority between sessions exists.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return ctx.Err()
	}

	for {
		l.mu.Lock()
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.admitted = 0
		}
		if l.admitted < l.limit {
			l.admitted++
			l.mu.Unlock()
			return nil
		}
		wakeAt := l.windowStart.Add(l.window)
		l.mu.Unlock()

		timer := time.NewTimer(wakeAt.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining reports how many calls the current window still admits. Intended
// for tests and debug logging only; the value is stale the moment it returns.
func (l *WindowLimiter) Remaining() int {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowStart.IsZero() || l.now().Sub(l.windowStart) >= l.window {
		return l.limit
	}
	return l.limit - l.admitted
}
