package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Window is a freshness window that can be adjusted at runtime. All
// resources sharing a Window observe a new duration on their next Get; no
// separate invalidation pass is needed.
type Window struct {
	d atomic.Int64
}

// NewWindow creates a Window with the given initial duration.
func NewWindow(d time.Duration) *Window {
	w := &Window{}
	w.d.Store(int64(d))
	return w
}

// Duration returns the current window.
func (w *Window) Duration() time.Duration { return time.Duration(w.d.Load()) }

// Set replaces the window. It applies retroactively: entries fetched under
// the old window are re-judged against the new one.
func (w *Window) Set(d time.Duration) { w.d.Store(int64(d)) }

// ResourceConfig describes one remote resource for [NewResource].
type ResourceConfig[T any] struct {
	// URL locates the resource.
	URL string

	// Client performs the requests.
	Client *Client

	// Window decides how long a fetched value is served without I/O.
	Window *Window

	// Policy governs retries around each fetch. Zero value means
	// [DefaultRetryPolicy].
	Policy RetryPolicy

	// Parse converts a response body into the cached value. A parse error
	// is surfaced to the caller and leaves the cache untouched.
	Parse func(data []byte) (T, error)

	// SkipCache, when non-nil, marks values that are returned to the caller
	// but deliberately not cached — typically empty-but-valid payloads that
	// would otherwise pin a transient empty response for the whole window.
	SkipCache func(v T) bool
}

// Resource is an in-memory conditional-fetch cache for a single remote
// value. It remembers the value, when it was fetched, and the ETag the
// server returned, and uses If-None-Match revalidation to refresh cheaply.
//
// A Resource is safe for concurrent use; foreground gets and background
// revalidation serialize on an internal mutex and converge to the same
// state because updates are idempotent replacements.
type Resource[T any] struct {
	cfg ResourceConfig[T]

	mu        sync.Mutex
	value     T
	hasValue  bool
	fetchedAt time.Time
	etag      string
}

// NewResource creates a Resource. Parse, Client, and Window are required.
func NewResource[T any](cfg ResourceConfig[T]) *Resource[T] {
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	return &Resource[T]{cfg: cfg}
}

// Get returns the resource value, fetching or revalidating as needed.
//
// A value fresher than the window is returned with zero network calls.
// Otherwise a conditional GET is issued, with the stored ETag attached
// unless force is set. A 304 refreshes only the fetch timestamp. On
// rate-limit or transport failure the last good value is returned when one
// exists (stale-but-available policy); with nothing to fall back on the
// typed error is propagated.
func (r *Resource[T]) Get(ctx context.Context, force bool) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force && r.hasValue && time.Since(r.fetchedAt) < r.cfg.Window.Duration() {
		return r.value, nil
	}

	etag := r.etag
	if force {
		etag = ""
	}

	resp, err := r.fetch(ctx, etag)
	if err == nil && resp.NotModified {
		if r.hasValue {
			r.fetchedAt = time.Now()
			return r.value, nil
		}
		// A 304 with nothing cached should be impossible, but has been
		// observed; recover with an unconditional fetch.
		resp, err = r.fetch(ctx, "")
	}
	if err != nil {
		if r.hasValue {
			return r.value, nil
		}
		var zero T
		return zero, err
	}

	v, err := r.cfg.Parse(resp.Body)
	if err != nil {
		// Malformed payloads are surfaced, never cached. Stale data, if
		// any, remains authoritative for later calls.
		var zero T
		return zero, err
	}

	if r.cfg.SkipCache != nil && r.cfg.SkipCache(v) {
		return v, nil
	}

	r.value = v
	r.hasValue = true
	r.fetchedAt = time.Now()
	r.etag = resp.ETag
	return v, nil
}

func (r *Resource[T]) fetch(ctx context.Context, etag string) (*Response, error) {
	var resp *Response
	err := Retry(ctx, r.cfg.Policy, func() error {
		var ferr error
		resp, ferr = r.cfg.Client.GetConditional(ctx, r.cfg.URL, etag)
		return ferr
	})
	return resp, err
}

// Peek returns the cached value without any I/O or freshness check.
func (r *Resource[T]) Peek() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.hasValue
}

// Fresh reports whether a cached value exists and is within the window.
func (r *Resource[T]) Fresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasValue && time.Since(r.fetchedAt) < r.cfg.Window.Duration()
}

// FetchedAt returns when the cached value was last fetched or revalidated.
func (r *Resource[T]) FetchedAt() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchedAt, r.hasValue
}

// Invalidate drops the cached value, timestamp, and revalidation token.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	r.value = zero
	r.hasValue = false
	r.fetchedAt = time.Time{}
	r.etag = ""
}
