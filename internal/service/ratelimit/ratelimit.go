// Package ratelimit is a sliding-window request counter, applied as
// HTTP middleware per endpoint class. It is in-process state: each
// instance counts only its own traffic.
package ratelimit

import (
	"sync"
	"time"
)

// Limit is a window/max pair: at most Max requests per Window.
type Limit struct {
	Window time.Duration
	Max    int
}

// Endpoint classes and their default limits.
var (
	LimitAsk     = Limit{Window: time.Minute, Max: 30}
	LimitIngest  = Limit{Window: time.Minute, Max: 100}
	LimitSummary = Limit{Window: time.Hour, Max: 50}
)

// Limiter tracks request timestamps per key. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records the request and reports whether it fits the key's
// limit. Timestamps older than the window are dropped on each call, so
// the map stays bounded by active keys times their max.
func (l *Limiter) Allow(key string, limit Limit) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-limit.Window)

	valid := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= limit.Max {
		l.requests[key] = valid
		return false
	}

	l.requests[key] = append(valid, now)
	return true
}
