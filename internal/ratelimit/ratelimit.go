// Package ratelimit implements the per-tool sliding-window rate limiter the
// hook pipeline consults before admitting a call (spec.md §4.3, §8 scenario
// 5: "admit exactly N calls in a window, deny the N+1th").
//
// golang.org/x/time/rate's token bucket does not give an exact "N admitted,
// N+1 denied" boundary within a fixed window — a bucket can refill mid-window
// and admit more than N, or fewer, depending on burst configuration. This
// package is hand-rolled for that reason (see DESIGN.md); it is a narrow,
// single-purpose counter, not a generic scheduling primitive.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a maximum number of admitted calls per tool name within a
// rolling window. A zero-value Limiter is not usable; use New.
type Limiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	entries map[string][]time.Time
}

// New builds a Limiter admitting at most limit calls per tool per window.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		window:  window,
		limit:   limit,
		entries: make(map[string][]time.Time),
	}
}

// Allow reports whether tool may be called now, recording the call if so.
// Entries older than the window are pruned on every call, so memory stays
// bounded by limit regardless of call volume.
func (l *Limiter) Allow(tool string) bool {
	return l.AllowAt(tool, time.Now())
}

// AllowAt is Allow with an explicit clock, used by tests that need
// deterministic window boundaries.
func (l *Limiter) AllowAt(tool string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.entries[tool][:0]
	for _, t := range l.entries[tool] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.entries[tool] = kept
		return false
	}

	l.entries[tool] = append(kept, now)
	return true
}

// Reset clears all recorded calls for tool. Used by tests and by a future
// admin surface; not reachable from any tool handler today.
func (l *Limiter) Reset(tool string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, tool)
}

// Count reports how many calls for tool currently fall within the window.
func (l *Limiter) Count(tool string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[tool])
}
