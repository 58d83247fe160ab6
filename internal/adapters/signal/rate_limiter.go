package signal

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/dkeye/Huddle/internal/core"
)

// RateLimiter keeps one token bucket per connection.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[core.SessionID]*rate.Limiter
}

// NewRateLimiter returns nil when perSecond is not positive; a nil
// RateLimiter allows everything.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[core.SessionID]*rate.Limiter),
	}
}

func (rl *RateLimiter) Allow(sid core.SessionID) bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	l, ok := rl.buckets[sid]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[sid] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *RateLimiter) Forget(sid core.SessionID) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.buckets, sid)
	rl.mu.Unlock()
}
