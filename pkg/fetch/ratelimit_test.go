package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestInspectResponse(t *testing.T) {
	reset := time.Now().Add(40 * time.Minute).Unix()

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    bool
	}{
		{"ok", http.StatusOK, nil, false},
		{"too many requests", http.StatusTooManyRequests, nil, true},
		{"forbidden with quota exhausted", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, true},
		{"forbidden without quota headers", http.StatusForbidden, nil, false},
		{"forbidden with quota left", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "12"}, false},
		{"server error", http.StatusBadGateway, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			sig := InspectResponse(tt.status, h)
			if sig.Limited != tt.want {
				t.Errorf("InspectResponse(%d).Limited = %v, want %v", tt.status, sig.Limited, tt.want)
			}
		})
	}

	t.Run("reset header parsed", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Remaining", "0")
		h.Set("X-RateLimit-Reset", fmt.Sprint(reset))
		sig := InspectResponse(http.StatusForbidden, h)
		if !sig.Limited {
			t.Fatal("expected rate-limit signal")
		}
		if sig.ResetAt.Unix() != reset {
			t.Errorf("ResetAt = %v, want unix %d", sig.ResetAt, reset)
		}
	})

	t.Run("retry-after parsed", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "120")
		sig := InspectResponse(http.StatusTooManyRequests, h)
		until := time.Until(sig.ResetAt)
		if until < 110*time.Second || until > 130*time.Second {
			t.Errorf("ResetAt = %v from now, want ~120s", until)
		}
	})

	t.Run("no reset hint defaults to now", func(t *testing.T) {
		sig := InspectResponse(http.StatusTooManyRequests, http.Header{})
		if time.Since(sig.ResetAt) > time.Second {
			t.Errorf("ResetAt = %v, want approximately now", sig.ResetAt)
		}
	})
}

func TestInspectError(t *testing.T) {
	resetAt := time.Now().Add(time.Minute)
	wrapped := fmt.Errorf("fetch registry: %w", &RateLimitError{ResetAt: resetAt, Message: "slow down"})

	sig := InspectError(wrapped)
	if !sig.Limited {
		t.Fatal("InspectError() should recognize wrapped RateLimitError")
	}
	if !sig.ResetAt.Equal(resetAt) {
		t.Errorf("ResetAt = %v, want %v", sig.ResetAt, resetAt)
	}
	if sig.Message != "slow down" {
		t.Errorf("Message = %q, want %q", sig.Message, "slow down")
	}

	if InspectError(errors.New("boom")).Limited {
		t.Error("InspectError() flagged a plain error as rate limited")
	}
	if InspectError(nil).Limited {
		t.Error("InspectError(nil) flagged as rate limited")
	}
}
