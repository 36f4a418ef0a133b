package registry

import (
	"sync"
	"time"
)

// SuppressionCache remembers recent non-fatal resolution failures per plugin
// so a failing endpoint is not retried in a hot loop. Its window is fixed at
// construction and deliberately shorter than the freshness window: long
// enough to stop hammering, short enough not to hide a transient failure.
type SuppressionCache struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewSuppressionCache creates a cache with the given suppression window.
func NewSuppressionCache(window time.Duration) *SuppressionCache {
	return &SuppressionCache{
		window:  window,
		entries: make(map[string]time.Time),
	}
}

// ShouldSkip reports whether key failed within the suppression window.
// Expired entries are removed as a side effect.
func (c *SuppressionCache) ShouldSkip(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	occurred, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Since(occurred) >= c.window {
		delete(c.entries, key)
		return false
	}
	return true
}

// RecordFailure marks key as recently failed, restarting its window.
func (c *SuppressionCache) RecordFailure(key string) {
	c.mu.Lock()
	c.entries[key] = time.Now()
	c.mu.Unlock()
}

// Clear removes any suppression entry for key. Called on success and on a
// definitive not-found result, since absence is a stable fact rather than
// an error.
func (c *SuppressionCache) Clear(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Reset drops all suppression entries.
func (c *SuppressionCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]time.Time)
	c.mu.Unlock()
}
