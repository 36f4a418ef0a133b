package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plugindex/plugindex/pkg/fetch"
)

// Defaults for Service options. The suppression window is deliberately
// shorter than the freshness window.
const (
	DefaultRegistryURL = "https://raw.githubusercontent.com/plugindex/registry/main/community-plugins.json"
	DefaultStatsURL    = "https://raw.githubusercontent.com/plugindex/registry/main/community-plugin-stats.json"
	DefaultAPIBase     = "https://api.github.com"
	DefaultBranch      = "master"

	DefaultFreshnessWindow   = 30 * time.Minute
	DefaultSuppressionWindow = 5 * time.Minute
	DefaultBatchSize         = 5
	DefaultBatchDelay        = 300 * time.Millisecond
)

// Options configures [NewService]. The zero value uses the public registry
// locations, unauthenticated API access, and the default windows.
type Options struct {
	RegistryURL string
	StatsURL    string
	APIBase     string

	// Token authenticates API requests; empty means unauthenticated
	// (lower rate limits).
	Token string

	// Transport overrides the HTTP transport, mainly for tests. Nil means
	// a standard client with a request timeout.
	Transport fetch.Doer

	FreshnessWindow   time.Duration
	SuppressionWindow time.Duration
	BatchSize         int
	BatchDelay        time.Duration

	// Policy governs retries around every network call. Zero value means
	// [fetch.DefaultRetryPolicy].
	Policy fetch.RetryPolicy

	// Logger receives diagnostic messages. Nil disables logging.
	Logger func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.RegistryURL == "" {
		o.RegistryURL = DefaultRegistryURL
	}
	if o.StatsURL == "" {
		o.StatsURL = DefaultStatsURL
	}
	if o.APIBase == "" {
		o.APIBase = DefaultAPIBase
	}
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = DefaultFreshnessWindow
	}
	if o.SuppressionWindow <= 0 {
		o.SuppressionWindow = DefaultSuppressionWindow
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = DefaultBatchDelay
	}
	if o.Policy.MaxAttempts == 0 {
		o.Policy = fetch.DefaultRetryPolicy()
	}
	if o.Logger == nil {
		o.Logger = func(string, ...any) {}
	}
	return o
}

// Service is the consumer-facing cached view of the plugin registry. It is
// constructed once per process and owns all cache state; there are no
// package-level singletons. Lifecycle: create on startup, clear on explicit
// request, discard on teardown.
type Service struct {
	opts     Options
	client   *fetch.Client
	window   *fetch.Window
	registry *fetch.Resource[[]Plugin]
	stats    *fetch.Resource[Stats]
	resolver *Resolver
	filter   *dateFilter
}

// NewService creates a Service with the given options.
func NewService(opts Options) *Service {
	opts = opts.withDefaults()

	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}

	s := &Service{
		opts:   opts,
		client: fetch.NewClient(opts.Transport, headers),
		window: fetch.NewWindow(opts.FreshnessWindow),
	}

	s.registry = fetch.NewResource(fetch.ResourceConfig[[]Plugin]{
		URL:       opts.RegistryURL,
		Client:    s.client,
		Window:    s.window,
		Policy:    opts.Policy,
		Parse:     parsePlugins,
		SkipCache: func(ps []Plugin) bool { return len(ps) == 0 },
	})
	s.stats = fetch.NewResource(fetch.ResourceConfig[Stats]{
		URL:       opts.StatsURL,
		Client:    s.client,
		Window:    s.window,
		Policy:    opts.Policy,
		Parse:     parseStats,
		SkipCache: func(st Stats) bool { return len(st) == 0 },
	})
	s.resolver = NewResolver(ResolverConfig{
		Client:   s.client,
		APIBase:  opts.APIBase,
		Policy:   opts.Policy,
		Window:   s.window,
		Suppress: NewSuppressionCache(opts.SuppressionWindow),
		Stats: func(ctx context.Context) (Stats, error) {
			return s.stats.Get(ctx, false)
		},
		Logger: opts.Logger,
	})
	s.filter = newDateFilter(opts.BatchSize, opts.BatchDelay,
		func(ctx context.Context, p Plugin) (*ReleaseInfo, error) {
			return s.resolver.Resolve(ctx, p, false)
		},
		opts.Logger,
	)
	return s
}

// FetchRegistry returns the plugin list, served from cache when fresh.
// Invalid entries (missing ID or malformed repository reference) are
// dropped before caching, so the cache only ever holds usable entries.
func (s *Service) FetchRegistry(ctx context.Context, force bool) ([]Plugin, error) {
	return s.registry.Get(ctx, force)
}

// FetchStatistics returns the shared download-statistics blob, or nil with
// an error when it was never fetchable.
func (s *Service) FetchStatistics(ctx context.Context, force bool) (Stats, error) {
	return s.stats.Get(ctx, force)
}

// GetReleaseInfo resolves latest-release information for p through the
// cache, statistics, and API tiers. A nil result with a nil error means no
// data is available (including confirmed absence).
func (s *Service) GetReleaseInfo(ctx context.Context, p Plugin, force bool) (*ReleaseInfo, error) {
	return s.resolver.Resolve(ctx, p, force)
}

// GetCachedReleaseDate reports the cached release date for a plugin ID with
// zero I/O. found is true with a nil date for confirmed-nulls.
func (s *Service) GetCachedReleaseDate(id string) (date *time.Time, found bool) {
	return s.resolver.CachedDate(id)
}

// FindPlugin looks an entry up by ID in the (cached) registry list.
func (s *Service) FindPlugin(ctx context.Context, id string) (Plugin, error) {
	plugins, err := s.FetchRegistry(ctx, false)
	if err != nil {
		return Plugin{}, err
	}
	for _, p := range plugins {
		if p.ID == id {
			return p, nil
		}
	}
	return Plugin{}, fmt.Errorf("%w: plugin %q", fetch.ErrNotFound, id)
}

// RunDateFilter returns the plugins whose release date is on or after
// cutoff. Dates are resolved in small concurrent batches; starting a new
// run supersedes any run still in flight, which then returns
// [ErrSuperseded] instead of delivering stale results.
func (s *Service) RunDateFilter(ctx context.Context, plugins []Plugin, cutoff time.Time) ([]Plugin, error) {
	return s.filter.Run(ctx, plugins, cutoff)
}

// SetFreshnessWindow replaces the freshness window for every cache tier.
// The new window applies on the next get; no invalidation pass is needed.
func (s *Service) SetFreshnessWindow(d time.Duration) {
	s.window.Set(d)
}

// FreshnessWindow returns the current freshness window.
func (s *Service) FreshnessWindow() time.Duration {
	return s.window.Duration()
}

// ClearAllCaches drops every cached value, timestamp, revalidation token,
// and suppression entry.
func (s *Service) ClearAllCaches() {
	s.registry.Invalidate()
	s.stats.Invalidate()
	s.resolver.Clear()
}

// LastRateLimit returns the most recent rate-limit signal observed on any
// request, letting callers surface one deferred notice instead of failing
// individual operations.
func (s *Service) LastRateLimit() fetch.RateLimitSignal {
	return s.client.LastRateLimit()
}

// StartAutoRefresh revalidates the registry list and statistics blob every
// interval until ctx is cancelled. Background refreshes are safe alongside
// foreground gets: resources serialize per entry and updates are idempotent
// replacements.
func (s *Service) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.FetchRegistry(ctx, false); err != nil {
					s.opts.Logger("background registry refresh failed: %v", err)
				}
				if _, err := s.FetchStatistics(ctx, false); err != nil {
					s.opts.Logger("background statistics refresh failed: %v", err)
				}
			}
		}
	}()
}

// parsePlugins decodes the registry list, dropping structurally invalid
// entries. A payload that is not a JSON array at all is a validation error
// and is never cached.
func parsePlugins(data []byte) ([]Plugin, error) {
	var raw []Plugin
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed registry payload: %w", err)
	}
	plugins := make([]Plugin, 0, len(raw))
	for _, p := range raw {
		if p.Valid() {
			plugins = append(plugins, p)
		}
	}
	return plugins, nil
}

func parseStats(data []byte) (Stats, error) {
	var st Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("malformed statistics payload: %w", err)
	}
	return st, nil
}
