package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
)

// fakeClock is a manually advanced time source for deterministic TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, maxSize int, ttl time.Duration, options ...Option[string]) (*TaggedCache[string], *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	options = append(options, WithClock[string](clock.Now))
	c, err := New(maxSize, ttl, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestNewValidation(t *testing.T) {
	_, err := New[string](0, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = New[string](10, -time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestBasicOperations(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	_, exists := c.Get("key1")
	assert.False(t, exists)

	require.NoError(t, c.Set("key1", "value1"))
	value, exists := c.Get("key1")
	require.True(t, exists)
	assert.Equal(t, "value1", value)

	require.NoError(t, c.Set("key1", "value1_updated"))
	value, exists = c.Get("key1")
	require.True(t, exists)
	assert.Equal(t, "value1_updated", value)

	deleted, err := c.Delete("key1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete("key1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, exists = c.Get("key1")
	assert.False(t, exists)
}

func TestSetEmptyKeyRejected(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Minute)

	err := c.Set("", "value")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = c.Delete("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestIdleTTLExpiry(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("key1", "value1"))

	// Accessing before expiry resets the idle window.
	clock.Advance(45 * time.Second)
	_, exists := c.Get("key1")
	require.True(t, exists)

	clock.Advance(45 * time.Second)
	_, exists = c.Get("key1")
	require.True(t, exists, "access should have refreshed the idle window")

	// No access for a full TTL window: entry expires.
	clock.Advance(time.Minute)
	_, exists = c.Get("key1")
	assert.False(t, exists)

	// The lazy purge removed the entry entirely.
	assert.Equal(t, 0, c.Size())
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("key1", "value1"))

	// Exactly at the TTL boundary the entry is already expired.
	clock.Advance(time.Minute)
	assert.False(t, c.Has("key1"))
}

func TestHasDoesNotMutate(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("key1", "value1"))
	clock.Advance(59 * time.Second)

	// Has sees the entry but must not refresh its idle window.
	assert.True(t, c.Has("key1"))
	clock.Advance(2 * time.Second)
	assert.False(t, c.Has("key1"))

	// Has records neither hits nor misses.
	assert.Equal(t, int64(0), c.Stats().Hits())
	assert.Equal(t, int64(0), c.Stats().Misses())

	// The expired entry is still physically present: Has never purges.
	assert.Equal(t, 1, c.Size())
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 3, time.Hour)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))
	require.NoError(t, c.Set("c", "3"))

	// Touch "a" so "b" becomes least recently used.
	_, _ = c.Get("a")

	require.NoError(t, c.Set("d", "4"))

	assert.False(t, c.Has("b"), "least recently used entry should be evicted")
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
	assert.Equal(t, int64(1), c.Stats().Evictions())
}

func TestLRUEvictionInsertionOrderTieBreak(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Hour)

	// Same clock instant for both entries: the earlier-inserted one loses.
	require.NoError(t, c.Set("first", "1"))
	require.NoError(t, c.Set("second", "2"))
	require.NoError(t, c.Set("third", "3"))

	assert.False(t, c.Has("first"))
	assert.True(t, c.Has("second"))
	assert.True(t, c.Has("third"))
}

func TestReplaceDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Hour)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	// Replacing an existing key at capacity must not evict anything.
	require.NoError(t, c.Set("a", "1_updated"))

	assert.Equal(t, 2, c.Size())
	assert.Equal(t, int64(0), c.Stats().Evictions())
}

func TestReplaceResetsTagsAndFreshness(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("key1", "v1", "old-tag"))
	clock.Advance(50 * time.Second)
	require.NoError(t, c.Set("key1", "v2", "new-tag"))

	// Old tag association dropped.
	assert.Equal(t, 0, c.InvalidateByTag("old-tag"))
	assert.True(t, c.Has("key1"))

	// Write refreshed the idle window.
	clock.Advance(50 * time.Second)
	assert.True(t, c.Has("key1"))

	// New tag association holds.
	assert.Equal(t, 1, c.InvalidateByTag("new-tag"))
	assert.False(t, c.Has("key1"))
}

func TestInvalidateByTag(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	require.NoError(t, c.Set("a", "1", "entity:alice", "analytics"))
	require.NoError(t, c.Set("b", "2", "entity:alice"))
	require.NoError(t, c.Set("c", "3", "entity:bob", "analytics"))

	removed := c.InvalidateByTag("entity:alice")
	assert.Equal(t, 2, removed)
	assert.False(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))

	// Tag is gone from the index entirely.
	assert.Equal(t, 0, c.InvalidateByTag("entity:alice"))

	// Unknown tag is a no-op.
	assert.Equal(t, 0, c.InvalidateByTag("never-used"))

	assert.Equal(t, int64(2), c.Stats().InvalidationCount())
}

func TestInvalidateByPattern(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	require.NoError(t, c.Set("analytics:alice:patterns", "1"))
	require.NoError(t, c.Set("analytics:alice:correlations", "2"))
	require.NoError(t, c.Set("analytics:bob:patterns", "3"))

	removed, err := c.InvalidateByPattern(`^analytics:alice:`)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, c.Has("analytics:bob:patterns"))

	// Invalid regex returns a classified error and removes nothing.
	_, err = c.InvalidateByPattern(`[unclosed`)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, 1, c.Size())
}

func TestInvalidateVersion(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	c.InvalidateVersion()

	// Entries are still physically present but logically gone.
	assert.Equal(t, 2, c.Size())
	assert.False(t, c.Has("a"))
	_, exists := c.Get("a")
	assert.False(t, exists)

	// Writes after the bump are valid under the new version.
	require.NoError(t, c.Set("c", "3"))
	assert.True(t, c.Has("c"))

	// Re-writing a stale key resurrects it under the current version.
	require.NoError(t, c.Set("b", "2_new"))
	value, exists := c.Get("b")
	require.True(t, exists)
	assert.Equal(t, "2_new", value)
}

func TestCleanupSweepsStaleEntries(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("expired", "1"))
	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Set("fresh", "2"))
	require.NoError(t, c.Set("stale-version", "3"))

	// Version-bump then re-add one key under the new version.
	c.InvalidateVersion()
	require.NoError(t, c.Set("fresh", "2"))

	removed := c.Cleanup()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())
	assert.True(t, c.Has("fresh"))
}

func TestClearPreservesVersionStamp(t *testing.T) {
	c, _ := newTestCache(t, 10, time.Hour)

	require.NoError(t, c.Set("a", "1"))
	c.InvalidateVersion()
	require.NoError(t, c.Clear())

	// A write after clear must be valid: clear must not rewind the version.
	require.NoError(t, c.Set("b", "2"))
	assert.True(t, c.Has("b"))
	assert.Equal(t, 1, c.Size())

	// Counters reset.
	assert.Equal(t, int64(1), c.Stats().Sets())
}

func TestKeysMostRecentFirst(t *testing.T) {
	c, clock := newTestCache(t, 10, time.Minute)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))
	require.NoError(t, c.Set("c", "3"))
	_, _ = c.Get("a")

	assert.Equal(t, []string{"a", "c", "b"}, c.Keys())

	// Expired entries are omitted without being purged.
	clock.Advance(2 * time.Minute)
	assert.Empty(t, c.Keys())
	assert.Equal(t, 3, c.Size())
}

func TestStatsCounting(t *testing.T) {
	c, clock := newTestCache(t, 2, time.Minute)

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	_, _ = c.Get("a")     // hit
	_, _ = c.Get("nope")  // miss
	clock.Advance(2 * time.Minute)
	_, _ = c.Get("b") // stale purge: counts as a miss, not an eviction

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(2), stats.Misses())
	assert.Equal(t, int64(2), stats.Sets())
	assert.Equal(t, int64(0), stats.Evictions())
	assert.InDelta(t, 1.0/3.0, stats.HitRatio(), 0.0001)

	summary := stats.Summary()
	assert.Equal(t, int64(1), summary.Hits)
	assert.Equal(t, int64(2), summary.Misses)
}

func TestEvictionCallback(t *testing.T) {
	var mu sync.Mutex
	removed := make(map[string]string)

	clock := newFakeClock()
	c, err := New(2, time.Minute,
		WithClock[string](clock.Now),
		WithEvictionCallback[string](func(key, value string) {
			mu.Lock()
			removed[key] = value
			mu.Unlock()
		}))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set("a", "1", "tag"))
	require.NoError(t, c.Set("b", "2"))
	require.NoError(t, c.Set("c", "3")) // evicts "a" (LRU)
	c.InvalidateByTag("tag")            // no-op: "a" already gone
	_, _ = c.Delete("b")

	clock.Advance(2 * time.Minute)
	c.Cleanup() // sweeps "c"

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, removed)
}

func TestMemoryUsageTracking(t *testing.T) {
	clock := newFakeClock()
	c, err := New(10, time.Minute,
		WithClock[string](clock.Now),
		WithSizeEstimator[string](func(v string) int { return len(v) }))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set("key", "value", "tag"))
	usage := c.Stats().MemoryUsage()
	assert.Greater(t, usage, int64(0))

	_, err = c.Delete("key")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.Stats().MemoryUsage())
}

func TestJanitorSweepsInBackground(t *testing.T) {
	c, err := New[string](10, time.Nanosecond)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.StartJanitor(ctx, 10*time.Millisecond))

	// Duplicate janitor rejected.
	err = c.StartJanitor(ctx, 10*time.Millisecond)
	require.Error(t, err)

	require.NoError(t, c.Set("a", "1"))
	assert.Eventually(t, func() bool { return c.Size() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, 128, time.Minute)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d-%d", worker, i%16)
				switch i % 5 {
				case 0:
					_ = c.Set(key, "value", fmt.Sprintf("tag-%d", worker))
				case 1:
					_, _ = c.Get(key)
				case 2:
					_ = c.Has(key)
				case 3:
					c.InvalidateByTag(fmt.Sprintf("tag-%d", worker))
				case 4:
					_, _ = c.Delete(key)
				}
			}
		}(worker)
	}
	wg.Wait()

	// Internal accounting stayed consistent under concurrency.
	assert.Equal(t, len(c.Keys()), len(c.Keys()))
	assert.LessOrEqual(t, c.Size(), 128)
}
