// Package ratelimit spaces out outbound requests per host.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests to the same host.
// A zero interval disables it.
type Limiter struct {
	mu          sync.Mutex
	last        map[string]time.Time
	minInterval time.Duration
	now         func() time.Time
}

func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		last:        make(map[string]time.Time),
		minInterval: minInterval,
		now:         time.Now,
	}
}

// reserve records a request to host if its window is open and otherwise
// returns how long the caller still has to wait.
func (l *Limiter) reserve(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[host]; ok {
		if remaining := l.minInterval - now.Sub(last); remaining > 0 {
			return remaining
		}
	}
	l.last[host] = now
	return 0
}

// Allow reports whether a request to host may go out now and, if so,
// records it. A refused request does not move the window.
func (l *Limiter) Allow(host string) bool {
	return l.reserve(host) == 0
}

// Wait blocks until a request to host is allowed, then records it. It
// returns ctx.Err() if ctx ends first.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	for {
		wait := l.reserve(host)
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset forgets host so its next request goes out immediately.
func (l *Limiter) Reset(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, host)
}
