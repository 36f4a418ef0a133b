// Package fetch provides conditional HTTP fetching for registry clients.
//
// # Overview
//
// This package provides the infrastructure used by all remote registry
// resources:
//
//   - [Resource]: in-memory conditional-fetch cache (ETag revalidation)
//   - [Retry]: bounded exponential-backoff retry with a pluggable predicate
//   - [InspectResponse]: rate-limit signal detection
//   - [Client]: HTTP GET with typed outcome errors
//
// # Caching
//
// [Resource] holds a single remote value in memory for the lifetime of the
// process, together with the time it was fetched and the ETag the server
// returned. A fresh value is served with zero network calls; a stale value
// is revalidated with If-None-Match so that an unchanged resource costs a
// 304 instead of a re-download.
//
// Responses are never persisted. Clearing the cache or restarting the
// process always yields a full fetch.
//
// # Errors
//
// Outcomes are classified at the transport boundary into typed errors
// ([ErrNotFound], [RateLimitError], [StatusError], [RetryableError]) so
// callers never have to inspect error text or status codes themselves.
//
// # Retry
//
// [Retry] wraps a network call with exponential backoff:
//
//	err := fetch.Retry(ctx, policy, func() error {
//	    return doCall()
//	})
//
// Only errors the policy classifies as retryable trigger another attempt.
// Rate-limit errors are deliberately not retryable; callers fall back to
// stale cached data instead.
package fetch
