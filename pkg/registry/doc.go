// Package registry maintains a locally cached view of a community plugin
// registry: the published entry list, the shared download-statistics blob,
// and per-plugin release metadata.
//
// # Overview
//
// The [Service] is the consumer-facing entry point. It is constructed once
// per process and owns all cache state:
//
//	svc := registry.NewService(registry.Options{...})
//	plugins, err := svc.FetchRegistry(ctx, false)
//	info, err := svc.GetReleaseInfo(ctx, plugin, false)
//
// # Tiered resolution
//
// Release dates are resolved through tiers ordered by cost: the in-memory
// cache, the statistics blob (one request amortized over every plugin), and
// finally the rate-limited releases API. Each tier short-circuits the next,
// keeping the expensive tier a last resort.
//
// # Failure policy
//
// Every tier prefers a stale-but-valid value over an error. Definitive
// absence (404) is cached permanently as a confirmed-null; other resolution
// failures enter a short suppression window so a failing endpoint is not
// hammered. Plugins whose release date cannot be verified are excluded from
// date-filtered results rather than passed through.
package registry
