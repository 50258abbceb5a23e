// Package ratelimit implements the per-caller fixed-window admission gate.
// State lives in process memory and resets on restart.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited signals that the caller exceeded their window budget.
var ErrRateLimited = errors.New("rate limit exceeded, retry after the current window")

type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window counter keyed by caller id. The clock is
// injectable so tests can drive window rollover deterministically.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

// New builds a Limiter admitting max requests per window length.
func New(max int, windowLen time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  windowLen,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock replaces the limiter's clock. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow admits or rejects one request from callerID. A fresh window resets
// the count; overflow within a window returns ErrRateLimited.
func (l *Limiter) Allow(callerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[callerID]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[callerID] = &window{start: now, count: 1}
		return nil
	}
	if w.count >= l.max {
		return ErrRateLimited
	}
	w.count++
	return nil
}
