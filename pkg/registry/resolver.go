package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plugindex/plugindex/pkg/fetch"
)

// releaseEntry is one cached resolution result. A nil info with present=true
// is a confirmed-null: the plugin verifiably has no release. Confirmed-nulls
// are permanent until a forced refresh; everything else ages out of the
// freshness window.
type releaseEntry struct {
	info      *ReleaseInfo
	fetchedAt time.Time
	permanent bool
}

// Resolver resolves "latest release" information for plugins through tiers
// ordered by cost:
//
//  1. the in-memory release cache (zero I/O, includes confirmed-nulls)
//  2. the statistics blob, one cached request shared by every plugin
//  3. the rate-limited releases API, guarded by the suppression cache
//
// Each tier short-circuits the rest, keeping the quota-limited API a last
// resort.
type Resolver struct {
	client   *fetch.Client
	apiBase  string
	policy   fetch.RetryPolicy
	window   *fetch.Window
	suppress *SuppressionCache
	stats    func(ctx context.Context) (Stats, error)
	logger   func(format string, args ...any)

	mu      sync.Mutex
	entries map[string]releaseEntry
}

// ResolverConfig configures [NewResolver]. Stats provides the separately
// cached statistics blob; Logger may be nil.
type ResolverConfig struct {
	Client   *fetch.Client
	APIBase  string
	Policy   fetch.RetryPolicy
	Window   *fetch.Window
	Suppress *SuppressionCache
	Stats    func(ctx context.Context) (Stats, error)
	Logger   func(format string, args ...any)
}

// NewResolver creates a Resolver with an empty release cache.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = fetch.DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = func(string, ...any) {}
	}
	return &Resolver{
		client:   cfg.Client,
		apiBase:  cfg.APIBase,
		policy:   cfg.Policy,
		window:   cfg.Window,
		suppress: cfg.Suppress,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		entries:  make(map[string]releaseEntry),
	}
}

// Resolve returns the latest-release information for p, or (nil, nil) when
// no data is available. force bypasses every cache tier, including
// confirmed-nulls and suppression, and goes straight to the API.
//
// A malformed repository reference fails fast with an error; resolution
// failures never do, they degrade to "no data".
func (r *Resolver) Resolve(ctx context.Context, p Plugin, force bool) (*ReleaseInfo, error) {
	if !force {
		if info, ok := r.cached(p.ID); ok {
			return info, nil
		}

		if info := r.fromStats(ctx, p.ID); info != nil {
			r.store(p.ID, info, false)
			return info, nil
		}

		if r.suppress.ShouldSkip(p.ID) {
			return nil, nil
		}
	}

	return r.fromAPI(ctx, p)
}

// CachedDate reports the cached release date for id without any I/O.
// found is true for confirmed-nulls as well, with a nil date.
func (r *Resolver) CachedDate(id string) (date *time.Time, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !r.freshLocked(e) {
		return nil, false
	}
	if e.info == nil {
		return nil, true
	}
	d := e.info.Date
	return &d, true
}

// Clear drops the release cache and all suppression entries.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.entries = make(map[string]releaseEntry)
	r.mu.Unlock()
	r.suppress.Reset()
}

func (r *Resolver) cached(id string) (*ReleaseInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !r.freshLocked(e) {
		return nil, false
	}
	return e.info, true
}

func (r *Resolver) freshLocked(e releaseEntry) bool {
	return e.permanent || time.Since(e.fetchedAt) < r.window.Duration()
}

func (r *Resolver) store(id string, info *ReleaseInfo, permanent bool) {
	r.mu.Lock()
	r.entries[id] = releaseEntry{info: info, fetchedAt: time.Now(), permanent: permanent}
	r.mu.Unlock()
}

// fromStats consults the shared statistics blob. Blob failures are tolerated
// silently here; the next tier gets its chance.
func (r *Resolver) fromStats(ctx context.Context, id string) *ReleaseInfo {
	stats, err := r.stats(ctx)
	if err != nil || stats == nil {
		return nil
	}
	s, ok := stats[id]
	if !ok {
		return nil
	}
	updated, ok := s.UpdatedTime()
	if !ok {
		return nil
	}
	return &ReleaseInfo{Date: updated, Downloads: s.Downloads}
}

// fromAPI issues the expensive, rate-limited call. A definitive not-found
// becomes a permanent confirmed-null and clears suppression; any other
// failure records a suppression entry and degrades to "no data".
func (r *Resolver) fromAPI(ctx context.Context, p Plugin) (*ReleaseInfo, error) {
	owner, name, err := SplitRepo(p.Repo)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", r.apiBase, owner, name)

	var resp *fetch.Response
	err = fetch.Retry(ctx, r.policy, func() error {
		var ferr error
		resp, ferr = r.client.Get(ctx, url)
		return ferr
	})
	if errors.Is(err, fetch.ErrNotFound) {
		r.store(p.ID, nil, true)
		r.suppress.Clear(p.ID)
		return nil, nil
	}
	if err != nil {
		r.suppress.RecordFailure(p.ID)
		r.logger("release lookup failed: %s: %v", p.ID, err)
		return nil, nil
	}

	info, ok := parseRelease(resp.Body)
	if !ok {
		// An unparsable release timestamp is a stable fact about the
		// repository, not a transient failure.
		r.logger("release for %s has no usable timestamp, caching as absent", p.ID)
		r.store(p.ID, nil, true)
		r.suppress.Clear(p.ID)
		return nil, nil
	}

	r.store(p.ID, info, false)
	r.suppress.Clear(p.ID)
	return info, nil
}

type releaseResponse struct {
	PublishedAt string `json:"published_at"`
	Assets      []struct {
		DownloadCount int `json:"download_count"`
	} `json:"assets"`
}

func parseRelease(data []byte) (*ReleaseInfo, bool) {
	var rel releaseResponse
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, false
	}
	published, err := time.Parse(time.RFC3339, rel.PublishedAt)
	if err != nil {
		return nil, false
	}
	info := &ReleaseInfo{Date: published}
	for _, a := range rel.Assets {
		info.Downloads += a.DownloadCount
	}
	return info, true
}
