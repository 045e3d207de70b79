package llmconn

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound calls to one provider to stay under its
// requests-per-minute ceiling, replacing the proactive Redis-counter
// approach with an in-process token bucket: the connector contract has no
// multi-process coordination requirement, so a shared external counter
// buys nothing here.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing requestsPerMinute steady-state,
// with a burst of one (no batching above the steady rate).
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)}
}

// Wait blocks until the limiter admits one more call or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
