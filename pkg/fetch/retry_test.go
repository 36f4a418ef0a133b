package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestRetryBackoffSchedule(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          150 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	var stamps []time.Time
	err := Retry(context.Background(), policy, func() error {
		stamps = append(stamps, time.Now())
		return Retryable(errors.New("boom"))
	})
	if err == nil {
		t.Fatal("Retry() should fail after exhausting attempts")
	}
	if len(stamps) != 3 {
		t.Fatalf("got %d attempts, want exactly 3", len(stamps))
	}

	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	if first < 100*time.Millisecond || first > 140*time.Millisecond {
		t.Errorf("first gap = %v, want ~100ms", first)
	}
	// Second delay would be 200ms unbounded; MaxDelay caps it at 150ms.
	if second < 150*time.Millisecond || second > 200*time.Millisecond {
		t.Errorf("second gap = %v, want ~150ms (capped)", second)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	wantErr := &StatusError{Code: 400}
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retry() = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1 (client errors are not retried)", calls)
	}
}

func TestRetryRateLimitNotRetried(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return &RateLimitError{ResetAt: time.Now()}
	})
	if !IsRateLimited(err) {
		t.Fatalf("Retry() = %v, want RateLimitError", err)
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1 (rate limits resolve via stale fallback)", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, BackoffMultiplier: 2}

	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, policy, func() error {
			return Retryable(errors.New("boom"))
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Retry() did not return after cancellation")
	}
}

func TestRetryAttemptAwarePredicate(t *testing.T) {
	calls := 0
	policy := RetryPolicy{
		MaxAttempts:       10,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 1,
		IsRetryable: func(err error, attempt int) bool {
			return attempt < 3 // never retry after the third attempt
		},
	}
	err := Retry(context.Background(), policy, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Retry() should fail")
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3 (predicate cut off further attempts)", calls)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDefaultIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable wrapper", Retryable(errors.New("boom")), true},
		{"wrapped retryable", fmt.Errorf("fetch: %w", Retryable(errors.New("boom"))), true},
		{"network timeout", timeoutErr{}, true},
		{"not found", ErrNotFound, false},
		{"rate limit", &RateLimitError{ResetAt: time.Now()}, false},
		{"client status", &StatusError{Code: 400}, false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultIsRetryable(tt.err, 1); got != tt.want {
				t.Errorf("DefaultIsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
