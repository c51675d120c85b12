package tools

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ToolRateLimiter throttles tool executions with a token bucket.
// Burst equals the per-minute budget so short spikes are tolerated.
type ToolRateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewToolRateLimiter creates a limiter allowing maxPerMinute executions.
// Pass 0 to disable rate limiting (returns nil).
func NewToolRateLimiter(maxPerMinute int) *ToolRateLimiter {
	if maxPerMinute <= 0 {
		return nil
	}
	return &ToolRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), maxPerMinute),
	}
}

// Allow reports whether another execution may proceed now.
func (rl *ToolRateLimiter) Allow() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.limiter.Allow() {
		return fmt.Errorf("tool rate limit exceeded")
	}
	return nil
}

// SetRate swaps the per-minute budget. Used by config hot reload.
func (rl *ToolRateLimiter) SetRate(maxPerMinute int) {
	if maxPerMinute <= 0 {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiter.SetLimit(rate.Limit(float64(maxPerMinute) / 60.0))
	rl.limiter.SetBurst(maxPerMinute)
}
