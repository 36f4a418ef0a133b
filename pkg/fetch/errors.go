package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for fetch outcomes.
var (
	// ErrNotFound is returned when the remote resource definitively does
	// not exist (404). Callers treat this as a stable fact, not a failure.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport-level failures (timeouts,
	// connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// StatusError reports a non-2xx response that has no more specific
// classification (rate limit, not found, not modified).
type StatusError struct {
	Code int
}

// Error returns the status code description.
func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

// RateLimitError indicates the remote endpoint refused the request because
// the caller exhausted its quota. ResetAt is the earliest time a new attempt
// may succeed; when the server gave no reset hint it is the observation time.
type RateLimitError struct {
	ResetAt time.Time
	Message string
}

// Error returns the rate-limit message with the reset time.
func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rate limited until %s: %s", e.ResetAt.Format(time.RFC3339), e.Message)
	}
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// IsRateLimited checks if an error is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryableError checks if an error is wrapped with RetryableError.
func IsRetryableError(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
