package fetch

import (
	"context"
	"errors"
	"net"
	"time"
)

// RetryPolicy configures [Retry]. It is pure configuration with no mutable
// state and may be shared across call sites.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// InitialDelay is the pause before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64

	// IsRetryable decides whether the error from the given 1-based attempt
	// warrants another try. When nil, [DefaultIsRetryable] is used.
	IsRetryable func(err error, attempt int) bool
}

// DefaultRetryPolicy returns the policy shared by all registry call sites:
// 3 attempts, 1 second initial delay doubling up to 30 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// DefaultIsRetryable classifies errors for retry.
//
// Retried: errors wrapped with [RetryableError] (5xx, request timeout,
// connection failures), net timeouts, and context-free transport errors.
// Not retried: rate limits (resolved by stale-cache fallback instead),
// definitive absence, context cancellation, and anything client-side.
func DefaultIsRetryable(err error, _ int) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return false
	case IsRateLimited(err):
		return false
	case errors.Is(err, ErrNotFound):
		return false
	case IsRetryableError(err):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Retry executes fn up to policy.MaxAttempts times with exponential backoff.
//
// The delay before attempt n+1 is min(MaxDelay, InitialDelay × Multiplier^(n-1)).
// Errors the policy rejects are returned immediately; otherwise the last
// observed error is returned once attempts are exhausted. Returns ctx.Err()
// if the context is cancelled while waiting between attempts.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := max(policy.MaxAttempts, 1)
	retryable := policy.IsRetryable
	if retryable == nil {
		retryable = DefaultIsRetryable
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !retryable(err, attempt) {
			return err
		}

		if attempt < attempts {
			if policy.MaxDelay > 0 && delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
			}
		}
	}
	return lastErr
}
