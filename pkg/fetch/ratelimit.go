package fetch

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// RateLimitSignal is the result of inspecting a response or error for
// rate-limit indicators. It is derived per call and never persisted.
type RateLimitSignal struct {
	Limited bool
	ResetAt time.Time
	Message string
}

// InspectResponse examines a status code and headers for rate-limit
// indicators. It recognizes 429 responses, 403 responses with an exhausted
// X-RateLimit-Remaining quota, and extracts the reset time from
// X-RateLimit-Reset (unix seconds) or Retry-After (seconds). When no reset
// hint is present the signal's ResetAt is the current time, meaning "retry
// later, exact time unknown".
//
// InspectResponse is safe to call with partial or absent header data.
func InspectResponse(status int, header http.Header) RateLimitSignal {
	limited := status == http.StatusTooManyRequests
	if status == http.StatusForbidden && header.Get("X-RateLimit-Remaining") == "0" {
		limited = true
	}
	if !limited {
		return RateLimitSignal{}
	}

	sig := RateLimitSignal{
		Limited: true,
		ResetAt: time.Now(),
		Message: "API rate limit exceeded",
	}
	if reset := header.Get("X-RateLimit-Reset"); reset != "" {
		if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
			sig.ResetAt = time.Unix(unix, 0)
		}
	} else if after := header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil {
			sig.ResetAt = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return sig
}

// InspectError examines an error for rate-limit indicators. Transports that
// report non-2xx responses as errors end up here; typed [RateLimitError]
// values produced at the transport boundary are recognized directly.
func InspectError(err error) RateLimitSignal {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return RateLimitSignal{Limited: true, ResetAt: rl.ResetAt, Message: rl.Message}
	}
	return RateLimitSignal{}
}
