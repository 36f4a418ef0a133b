// Package pkg provides the core libraries for the plugindex registry cache.
//
// # Overview
//
// Plugindex keeps a locally cached view of a remotely published plugin
// registry and refreshes it with minimal network cost. The pkg directory is
// organized into three areas:
//
//  1. [fetch] - Conditional fetching (ETag revalidation, retries, rate-limit
//     detection, cached resources with freshness windows)
//  2. [registry] - The domain layer (plugin types, tiered release resolution,
//     the batched date filter, the consumer-facing Service)
//  3. [buildinfo] - Build-time version information
//
// # Architecture
//
// The typical data flow:
//
//	Remote registry files (registry list, statistics blob)
//	         ↓
//	    [fetch] package (conditional requests, retry, rate-limit handling)
//	         ↓
//	    [registry] package (tiered resolution, date filtering)
//	         ↓
//	    CLI commands / HTTP API
//
// # Quick Start
//
// Fetch the registry and resolve a release date:
//
//	import (
//	    "context"
//	    "github.com/plugindex/plugindex/pkg/registry"
//	)
//
//	svc := registry.NewService(registry.Options{Token: os.Getenv("GITHUB_TOKEN")})
//	plugins, _ := svc.FetchRegistry(context.Background(), false)
//	info, _ := svc.GetReleaseInfo(context.Background(), plugins[0], false)
//
// Repeated calls within the freshness window are served from memory with no
// network traffic; stale values are revalidated with conditional requests.
//
// [fetch]: https://pkg.go.dev/github.com/plugindex/plugindex/pkg/fetch
// [registry]: https://pkg.go.dev/github.com/plugindex/plugindex/pkg/registry
// [buildinfo]: https://pkg.go.dev/github.com/plugindex/plugindex/pkg/buildinfo
package pkg
