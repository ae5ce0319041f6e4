package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Pool hands out one token-bucket limiter per key (producer id). A nil pool
// allows everything, so callers need no enabled/disabled branching.
type Pool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

// NewPool returns a pool limiting each key to rps requests per second with
// the given burst, or nil when rps <= 0 (limiting disabled).
func NewPool(rps float64, burst int) *Pool {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 10
	}
	return &Pool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

// Allow reports whether one event for key may proceed now.
func (p *Pool) Allow(key string) bool {
	if p == nil {
		return true
	}
	return p.get(key).Allow()
}
