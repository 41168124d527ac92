// Package cache provides a generic, thread-safe tagged cache with combined
// TTL and LRU eviction, version-stamped O(1) bulk invalidation, and built-in
// statistics (always enabled for observability) with optional Prometheus
// metrics integration via functional options.
package cache

import (
	"github.com/c360/insight/errors"
)

// Cache represents the tagged cache interface. The cache is parameterized by
// value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if the entry
	// is logically present (not expired, not version-stale), zero value and
	// false otherwise. A hit bumps the entry's recency and hit count; a
	// stale entry is purged on access.
	Get(key string) (V, bool)

	// Set stores a value with the given key and tag associations. If the
	// cache is at capacity and the key is new, the least recently used entry
	// is evicted first. Returns an error if the key is invalid.
	Set(key string, value V, tags ...string) error

	// Has reports whether the key is logically present. Unlike Get it
	// mutates nothing: no recency bump, no counters, no purge.
	Has(key string) bool

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// InvalidateByTag removes every entry associated with the tag and drops
	// the tag from the index. Returns the number of entries removed.
	InvalidateByTag(tag string) int

	// InvalidateByPattern removes every entry whose key matches the regex
	// pattern. Returns the number of entries removed, or an error if the
	// pattern does not compile.
	InvalidateByPattern(pattern string) (int, error)

	// InvalidateVersion bumps the global version stamp, turning every
	// current entry into a logical miss on next access. O(1); entries are
	// purged lazily.
	InvalidateVersion()

	// Cleanup sweeps out all entries that are expired by TTL or stale by
	// version. Not required for correctness, only for bounding memory
	// between accesses. Returns the number of entries removed.
	Cleanup() int

	// Clear empties the cache and resets statistics counters. The version
	// stamp is NOT reset so pre-clear entries can never resurrect as valid.
	Clear() error

	// Size returns the current number of entries, including entries that
	// are stale but not yet swept.
	Size() int

	// Keys returns the keys of all logically present entries, most recently
	// used first.
	Keys() []string

	// Stats returns the cache statistics tracker.
	Stats() *Statistics

	// Close shuts down the cache and releases any resources (e.g. the
	// background cleanup goroutine).
	Close() error
}

// EvictCallback is called when an entry is removed from the cache by
// eviction, invalidation, expiry, or cleanup. It receives the key and value
// of the removed entry.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
