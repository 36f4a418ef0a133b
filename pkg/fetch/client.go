package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const httpTimeout = 10 * time.Second

// Doer executes a single HTTP request. *http.Client satisfies it; custom
// transports may report non-2xx responses either as responses or as errors,
// and [Client] handles both.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the outcome of a conditional GET.
type Response struct {
	Body []byte
	ETag string

	// NotModified reports that the server confirmed the caller's ETag is
	// still current; Body is empty in that case.
	NotModified bool
}

// Client performs HTTP GETs with default headers and typed outcome errors.
// It records the most recent rate-limit signal so UI layers can surface a
// single deferred notice instead of failing each call.
type Client struct {
	http    Doer
	headers map[string]string

	mu        sync.Mutex
	lastLimit RateLimitSignal
}

// NewHTTPClient creates an HTTP client with a standard timeout for registry
// requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewClient creates a Client with default headers applied to all requests.
// Pass nil for transport to use a standard HTTP client, and nil for headers
// if no default headers are needed.
func NewClient(transport Doer, headers map[string]string) *Client {
	if transport == nil {
		transport = NewHTTPClient()
	}
	return &Client{http: transport, headers: headers}
}

// Get performs a plain GET and returns the response body.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.GetConditional(ctx, url, "")
}

// GetConditional performs a GET, sending etag as If-None-Match when it is
// non-empty. A 304 response yields Response.NotModified without a body.
//
// Failures are returned as typed errors: [ErrNotFound] for definitive
// absence, [RateLimitError] when quota is exhausted, [RetryableError]
// wrapping [ErrNetwork] for transport failures and 5xx responses, and
// [StatusError] for anything else.
func (c *Client) GetConditional(ctx context.Context, url, etag string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transports may surface rate limits and absence as errors rather
		// than responses; keep their classification intact.
		if sig := InspectError(err); sig.Limited {
			c.record(sig)
			return nil, err
		}
		if IsRateLimited(err) || IsRetryableError(err) {
			return nil, err
		}
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified {
		return &Response{ETag: etag, NotModified: true}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return &Response{Body: body, ETag: resp.Header.Get("ETag")}, nil
}

// LastRateLimit returns the most recent rate-limit signal observed on any
// request made through this client.
func (c *Client) LastRateLimit() RateLimitSignal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLimit
}

func (c *Client) record(sig RateLimitSignal) {
	c.mu.Lock()
	c.lastLimit = sig
	c.mu.Unlock()
}

func (c *Client) checkStatus(resp *http.Response) error {
	code := resp.StatusCode

	if sig := InspectResponse(code, resp.Header); sig.Limited {
		c.record(sig)
		return &RateLimitError{ResetAt: sig.ResetAt, Message: sig.Message}
	}

	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotModified:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500 || code == http.StatusRequestTimeout:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return &StatusError{Code: code}
	}
}
