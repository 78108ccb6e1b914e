// rate_limiter.go - Rate limiting to stay under upstream LLM request quotas

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by all upstream calls
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerMinute with a burst of the same size.
// requestsPerMinute <= 0 disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	every := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(every), requestsPerMinute),
	}
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
