package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plugindex/plugindex/pkg/fetch"
)

type resolverFixture struct {
	resolver  *Resolver
	apiCalls  *atomic.Int64
	stats     atomic.Pointer[Stats]
	statsErr  atomic.Pointer[error]
	statsHits *atomic.Int64
}

func newResolverFixture(t *testing.T, handler http.HandlerFunc, window, suppression time.Duration) *resolverFixture {
	t.Helper()
	f := &resolverFixture{apiCalls: &atomic.Int64{}, statsHits: &atomic.Int64{}}
	f.stats.Store(&Stats{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.apiCalls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	f.resolver = NewResolver(ResolverConfig{
		Client:   fetch.NewClient(nil, nil),
		APIBase:  server.URL,
		Policy:   fetch.RetryPolicy{MaxAttempts: 1},
		Window:   fetch.NewWindow(window),
		Suppress: NewSuppressionCache(suppression),
		Stats: func(ctx context.Context) (Stats, error) {
			f.statsHits.Add(1)
			if errp := f.statsErr.Load(); errp != nil {
				return nil, *errp
			}
			return *f.stats.Load(), nil
		},
	})
	return f
}

func releaseHandler(publishedAt string, downloads int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"published_at":%q,"assets":[{"download_count":%d}]}`, publishedAt, downloads)
	}
}

func TestResolverStatsTier(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T00:00:00Z", 10), time.Hour, time.Hour)
	f.stats.Store(&Stats{"p1": {Downloads: 42, Updated: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()}})

	p := Plugin{ID: "p1", Repo: "owner/repo"}
	info, err := f.resolver.Resolve(context.Background(), p, false)
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Downloads != 42 {
		t.Fatalf("Resolve() = %+v, want statistics-tier data", info)
	}
	if f.apiCalls.Load() != 0 {
		t.Error("statistics tier must short-circuit the API tier")
	}

	// Write-through: the cache tier now answers with zero I/O.
	date, found := f.resolver.CachedDate("p1")
	if !found || date == nil {
		t.Fatalf("CachedDate() = %v, %v; want write-through entry", date, found)
	}
}

func TestResolverTierOrdering(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T00:00:00Z", 0), time.Hour, time.Hour)
	cachedDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f.stats.Store(&Stats{"p1": {Downloads: 1, Updated: cachedDate.UnixMilli()}})

	p := Plugin{ID: "p1", Repo: "owner/repo"}
	if _, err := f.resolver.Resolve(context.Background(), p, false); err != nil {
		t.Fatal(err)
	}

	// The statistics blob now disagrees with the cache; a fresh cache tier
	// must win without consulting it again.
	f.stats.Store(&Stats{"p1": {Downloads: 1, Updated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()}})
	before := f.statsHits.Load()

	info, err := f.resolver.Resolve(context.Background(), p, false)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Date.Equal(cachedDate) {
		t.Errorf("Resolve() date = %v, want cached %v", info.Date, cachedDate)
	}
	if f.statsHits.Load() != before {
		t.Error("a fresh cache entry must not trigger a statistics lookup")
	}
	if f.apiCalls.Load() != 0 {
		t.Error("a fresh cache entry must not trigger an API call")
	}
}

func TestResolverAPITier(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T12:30:00Z", 7), time.Hour, time.Hour)

	info, err := f.resolver.Resolve(context.Background(), Plugin{ID: "p1", Repo: "owner/repo"}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	if info == nil || !info.Date.Equal(want) {
		t.Fatalf("Resolve() = %+v, want API release date %v", info, want)
	}
	if info.Downloads != 7 {
		t.Errorf("Downloads = %d, want 7", info.Downloads)
	}
	if f.apiCalls.Load() != 1 {
		t.Errorf("got %d API calls, want 1", f.apiCalls.Load())
	}
}

func TestResolverStatsFailureFallsThrough(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T00:00:00Z", 3), time.Hour, time.Hour)
	statsErr := fmt.Errorf("stats blob unavailable")
	f.statsErr.Store(&statsErr)

	info, err := f.resolver.Resolve(context.Background(), Plugin{ID: "p1", Repo: "owner/repo"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Downloads != 3 {
		t.Errorf("Resolve() = %+v, want API-tier data despite stats failure", info)
	}
	if f.apiCalls.Load() != 1 {
		t.Errorf("got %d API calls, want 1", f.apiCalls.Load())
	}
}

func TestResolverConfirmedNullPermanence(t *testing.T) {
	f := newResolverFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, time.Hour, time.Hour)

	p := Plugin{ID: "p2", Repo: "owner/repo"}
	info, err := f.resolver.Resolve(context.Background(), p, false)
	if err != nil || info != nil {
		t.Fatalf("Resolve() = %v, %v; want confirmed absence", info, err)
	}

	date, found := f.resolver.CachedDate("p2")
	if !found {
		t.Fatal("confirmed-null must report found=true")
	}
	if date != nil {
		t.Errorf("confirmed-null date = %v, want nil", date)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.resolver.Resolve(context.Background(), p, false); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.apiCalls.Load(); got != 1 {
		t.Errorf("got %d API calls, want 1 (absence is a stable fact)", got)
	}

	// A forced refresh bypasses even a confirmed-null.
	if _, err := f.resolver.Resolve(context.Background(), p, true); err != nil {
		t.Fatal(err)
	}
	if got := f.apiCalls.Load(); got != 2 {
		t.Errorf("got %d API calls after force, want 2", got)
	}
}

func TestResolverSuppression(t *testing.T) {
	f := newResolverFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Hour, 50*time.Millisecond)

	p := Plugin{ID: "p3", Repo: "owner/repo"}
	if info, err := f.resolver.Resolve(context.Background(), p, false); err != nil || info != nil {
		t.Fatalf("Resolve() = %v, %v; want no data without error", info, err)
	}
	if f.apiCalls.Load() != 1 {
		t.Fatalf("got %d API calls, want 1", f.apiCalls.Load())
	}

	// Within the suppression window: no new attempt.
	if _, err := f.resolver.Resolve(context.Background(), p, false); err != nil {
		t.Fatal(err)
	}
	if f.apiCalls.Load() != 1 {
		t.Error("a suppressed key must not hit the network")
	}

	// After the window elapses a new attempt is made.
	time.Sleep(60 * time.Millisecond)
	if _, err := f.resolver.Resolve(context.Background(), p, false); err != nil {
		t.Fatal(err)
	}
	if f.apiCalls.Load() != 2 {
		t.Errorf("got %d API calls after the window, want 2", f.apiCalls.Load())
	}
}

func TestResolverUnparsableTimestamp(t *testing.T) {
	f := newResolverFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"published_at":"not-a-date"}`)
	}, time.Hour, time.Hour)

	info, err := f.resolver.Resolve(context.Background(), Plugin{ID: "p4", Repo: "owner/repo"}, false)
	if err != nil || info != nil {
		t.Fatalf("Resolve() = %v, %v; want confirmed-null, no error", info, err)
	}

	if _, found := f.resolver.CachedDate("p4"); !found {
		t.Error("an unparsable timestamp must cache as confirmed-null, not retry")
	}
	if _, err := f.resolver.Resolve(context.Background(), Plugin{ID: "p4", Repo: "owner/repo"}, false); err != nil {
		t.Fatal(err)
	}
	if f.apiCalls.Load() != 1 {
		t.Errorf("got %d API calls, want 1", f.apiCalls.Load())
	}
}

func TestResolverMalformedRepoFailsFast(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T00:00:00Z", 0), time.Hour, time.Hour)

	_, err := f.resolver.Resolve(context.Background(), Plugin{ID: "bad", Repo: "no-slash"}, false)
	if err == nil {
		t.Fatal("a malformed repository reference must fail fast")
	}
	if f.apiCalls.Load() != 0 {
		t.Error("input errors must not reach the network")
	}
}

func TestResolverClear(t *testing.T) {
	f := newResolverFixture(t, releaseHandler("2025-06-01T00:00:00Z", 0), time.Hour, time.Hour)

	p := Plugin{ID: "p1", Repo: "owner/repo"}
	if _, err := f.resolver.Resolve(context.Background(), p, false); err != nil {
		t.Fatal(err)
	}
	f.resolver.Clear()

	if _, found := f.resolver.CachedDate("p1"); found {
		t.Error("Clear() must drop cached release entries")
	}
}
