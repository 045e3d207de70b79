package llmconn

import (
	"context"
	"time"
)

// RetryConfig bounds the exponential backoff every provider connector
// applies to its own transient failures: a doubling delay over a fixed
// number of attempts (5s, 10s, 20s, 40s between 5 attempts by default).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig is the backoff schedule tuned against Gemini's free
// tier rate limits, reused across all three providers for consistency.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseDelay: 5 * time.Second}
}

// withRetry calls fn until it succeeds, returns a *Error whose Kind is not
// retriable, or exhausts cfg.MaxAttempts. Backoff doubles each attempt.
func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	delay := cfg.BaseDelay

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		connErr, ok := err.(*Error)
		if !ok || !connErr.Kind.Retriable() || attempt >= cfg.MaxAttempts {
			return zero, err
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
