package signal

import (
	"sync"

	"github.com/collabhub/realtime/internal/core"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per connection for inbound requests.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[core.ConnID]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[core.ConnID]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (rl *RateLimiter) Allow(id core.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[id]
	if !ok {
		b = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[id] = b
	}
	return b.Allow()
}

func (rl *RateLimiter) Forget(id core.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, id)
}
