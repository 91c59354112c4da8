package provider

import (
	"context"
	"time"
)

// RetryPolicy is an explicit retry specification: attempt count, backoff
// shape, and a predicate deciding which errors are worth retrying. The
// zero value never retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; each subsequent
	// retry doubles it.
	BaseDelay time.Duration

	// Retryable decides whether an error is worth retrying. A nil
	// predicate retries nothing.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries rate-limit and 5xx failures up to three times
// with exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   IsRetryable,
	}
}

// Do runs fn until it succeeds, exhausts the attempt budget, or fails with
// a non-retryable error. The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
