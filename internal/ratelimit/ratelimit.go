// Package ratelimit provides a per-client sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts recent requests per client identifier over a trailing
// window. State is in-memory and per-process: a restart resets all counters,
// and multiple instances each enforce their own independent limit. That is
// an accepted limitation of the deployment, not a bug.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// New creates a Limiter allowing max requests per window for each client.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the client may proceed, recording the request
// timestamp when it does. Entries older than the window are pruned lazily
// before counting, so only allowed requests inside the trailing window
// count toward the limit.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[clientID][:0]
	for _, ts := range l.hits[clientID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.hits[clientID] = recent
		return false
	}

	l.hits[clientID] = append(recent, now)
	return true
}

// Prune drops clients whose every recorded request has aged out of the
// window. Called periodically to keep the map from growing unbounded.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for id, stamps := range l.hits {
		stale := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.hits, id)
		}
	}
}
