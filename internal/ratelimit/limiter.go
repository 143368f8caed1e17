/*
Package ratelimit bounds call attempts per API within a fixed time window.

State is process-local: windows are short-lived, so persistence across
restarts is a deployment concern, not a contract of this limiter.
*/
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the system-wide default for APIs without an
	// explicit policy.
	DefaultLimit = 100

	// DefaultWindow is the system-wide default window length.
	DefaultWindow = time.Hour
)

// Policy is the per-API rate configuration.
type Policy struct {
	Limit  int
	Window time.Duration
}

// window is the mutable counter state for one API.
type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// Limiter implements a fixed-window counter per API identifier.
type Limiter struct {
	mu       sync.RWMutex
	windows  map[string]*window
	policies map[string]Policy
	fallback Policy

	// now is replaceable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter with the system-wide default policy.
func NewLimiter() *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		policies: make(map[string]Policy),
		fallback: Policy{Limit: DefaultLimit, Window: DefaultWindow},
		now:      time.Now,
	}
}

// SetPolicy installs a per-API policy. Zero fields fall back to defaults.
func (l *Limiter) SetPolicy(apiID string, policy Policy) {
	if policy.Limit <= 0 {
		policy.Limit = l.fallback.Limit
	}
	if policy.Window <= 0 {
		policy.Window = l.fallback.Window
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.policies[apiID] = policy
}

// Allow records one attempt for apiID and reports whether it is within
// the current window's budget. Counting is atomic per API: concurrent
// attempts racing across a window boundary never under- or over-count.
func (l *Limiter) Allow(apiID string) bool {
	policy := l.policy(apiID)
	w := l.window(apiID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if now.Sub(w.start) > policy.Window {
		w.start = now
		w.count = 0
	}

	w.count++
	return w.count <= policy.Limit
}

// Reset clears all window state. Administrative action.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}

func (l *Limiter) policy(apiID string) Policy {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.policies[apiID]; ok {
		return p
	}
	return l.fallback
}

func (l *Limiter) window(apiID string) *window {
	l.mu.RLock()
	w, ok := l.windows[apiID]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[apiID]; ok {
		return w
	}
	w = &window{start: l.now()}
	l.windows[apiID] = w
	return w
}
