package cache

import (
	"container/list"
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/c360/insight/errors"
)

// taggedEntry represents an entry in the tagged cache.
type taggedEntry[V any] struct {
	key            string
	value          V
	writtenAt      time.Time
	lastAccessedAt time.Time
	hitCount       int64
	tags           []string
	version        uint64
}

// entryOverhead is the flat per-entry bookkeeping estimate used for
// approximate memory accounting (map buckets, list element, timestamps).
const entryOverhead = 128

// TaggedCache is a thread-safe cache combining idle-TTL expiry, LRU capacity
// eviction, tag-indexed bulk invalidation, and version-stamped O(1) global
// invalidation.
//
// An entry is logically present only if it was accessed within the TTL window
// AND its version stamp matches the cache's current version. Stale entries
// are purged lazily on access (or eagerly via Cleanup), so Size may count
// entries that would miss on Get.
type TaggedCache[V any] struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	version  uint64
	items    map[string]*list.Element // key -> list element
	order    *list.List               // recency list, front = most recently used
	tagIndex map[string]map[string]struct{}
	memBytes int64

	stats   *Statistics      // ALWAYS initialized
	metrics *cacheMetrics    // Optional, if metrics enabled
	evictFn EvictCallback[V] // Optional callback
	now     func() time.Time
	sizeOf  func(V) int

	// Background cleanup coordination (only when a janitor is running)
	janitor  bool
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a new tagged cache with the specified capacity and idle TTL.
// Stats are always enabled for observability. Use WithMetrics() to also
// export them as Prometheus metrics.
func New[V any](maxSize int, ttl time.Duration, options ...Option[V]) (*TaggedCache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New",
			fmt.Sprintf("max size must be positive, got %d", maxSize))
	}
	if ttl < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New",
			fmt.Sprintf("ttl cannot be negative, got %v", ttl))
	}

	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
	}

	c := &TaggedCache[V]{
		maxSize:  maxSize,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		tagIndex: make(map[string]map[string]struct{}),
		stats:    NewStatistics(),
		metrics:  metrics,
		evictFn:  opts.evictCallback,
		now:      opts.now,
		sizeOf:   opts.sizeOf,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	return c, nil
}

// StartJanitor launches a background goroutine that sweeps stale entries
// every interval until the context is cancelled or the cache is closed.
// Correctness never depends on the janitor; it only bounds memory between
// accesses.
func (c *TaggedCache[V]) StartJanitor(ctx context.Context, interval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.janitor {
		return errors.WrapInvalid(fmt.Errorf("janitor already running"),
			"cache", "StartJanitor", "duplicate janitor")
	}
	if interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "StartJanitor",
			fmt.Sprintf("interval must be positive, got %v", interval))
	}
	c.janitor = true

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.shutdown:
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()

	return nil
}

// isStale reports whether the entry is expired by idle TTL or stale by
// version. Must be called with mutex held.
func (c *TaggedCache[V]) isStale(e *taggedEntry[V], now time.Time) bool {
	if e.version != c.version {
		return true
	}
	return now.Sub(e.lastAccessedAt) >= c.ttl
}

// Get retrieves a value by key. A stale entry is purged and recorded as a
// miss; a fresh entry gets its recency and hit count bumped.
func (c *TaggedCache[V]) Get(key string) (V, bool) {
	var evicted []taggedEntry[V]

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.recordMiss()
		var zero V
		return zero, false
	}

	entry := element.Value.(*taggedEntry[V])
	now := c.now()

	if c.isStale(entry, now) {
		// Purge lazily; a purge on access counts as a plain miss, not an
		// eviction.
		evicted = c.removeElement(element, evicted)
		c.updateSizeLocked()
		c.mu.Unlock()

		c.notifyEvicted(evicted)
		c.recordMiss()
		var zero V
		return zero, false
	}

	entry.lastAccessedAt = now
	entry.hitCount++
	c.order.MoveToFront(element)
	c.mu.Unlock()

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return entry.value, true
}

// Set stores a value with the given key and tags. Replacing an existing key
// drops its old tag associations and resets its hit count and timestamps.
func (c *TaggedCache[V]) Set(key string, value V, tags ...string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	var evicted []taggedEntry[V]

	c.mu.Lock()
	now := c.now()

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*taggedEntry[V])
		c.memBytes -= c.entryBytes(entry)
		c.dropTagsLocked(entry)

		entry.value = value
		entry.writtenAt = now
		entry.lastAccessedAt = now
		entry.hitCount = 0
		entry.tags = append([]string(nil), tags...)
		entry.version = c.version

		c.indexTagsLocked(entry)
		c.memBytes += c.entryBytes(entry)
		c.order.MoveToFront(element)
	} else {
		// Evict the least recently used entry before inserting into a full
		// cache. The back of the recency list is min(lastAccessedAt), with
		// earlier-inserted entries closer to the back on ties.
		if len(c.items) >= c.maxSize {
			if back := c.order.Back(); back != nil {
				evicted = c.removeElement(back, evicted)
				c.stats.Eviction()
				if c.metrics != nil {
					c.metrics.recordEviction()
				}
			}
		}

		entry := &taggedEntry[V]{
			key:            key,
			value:          value,
			writtenAt:      now,
			lastAccessedAt: now,
			tags:           append([]string(nil), tags...),
			version:        c.version,
		}
		c.items[key] = c.order.PushFront(entry)
		c.indexTagsLocked(entry)
		c.memBytes += c.entryBytes(entry)
	}

	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	c.stats.Set()
	if c.metrics != nil {
		c.metrics.recordSet()
	}
	return nil
}

// Has reports logical presence without mutating the cache: no recency bump,
// no counters, no purge.
func (c *TaggedCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}
	return !c.isStale(element.Value.(*taggedEntry[V]), c.now())
}

// Delete removes an entry by key.
func (c *TaggedCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted []taggedEntry[V]

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}
	evicted = c.removeElement(element, evicted)
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	c.stats.Delete()
	if c.metrics != nil {
		c.metrics.recordDelete()
	}
	return true, nil
}

// InvalidateByTag removes every entry carrying the tag and drops the tag
// from the index entirely.
func (c *TaggedCache[V]) InvalidateByTag(tag string) int {
	var evicted []taggedEntry[V]

	c.mu.Lock()
	keys := c.tagIndex[tag]
	// Copy: removing entries mutates the tag set being iterated.
	snapshot := make([]string, 0, len(keys))
	for key := range keys {
		snapshot = append(snapshot, key)
	}

	count := 0
	for _, key := range snapshot {
		if element, exists := c.items[key]; exists {
			evicted = c.removeElement(element, evicted)
			count++
		}
	}
	delete(c.tagIndex, tag)
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	c.recordInvalidations(count)
	return count
}

// InvalidateByPattern removes every entry whose key matches the regex.
func (c *TaggedCache[V]) InvalidateByPattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errors.WrapInvalid(errors.ErrInvalidPattern, "cache", "InvalidateByPattern",
			fmt.Sprintf("compile %q: %v", pattern, err))
	}

	var evicted []taggedEntry[V]

	c.mu.Lock()
	matched := make([]*list.Element, 0)
	for key, element := range c.items {
		if re.MatchString(key) {
			matched = append(matched, element)
		}
	}
	for _, element := range matched {
		evicted = c.removeElement(element, evicted)
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	c.recordInvalidations(len(matched))
	return len(matched), nil
}

// InvalidateVersion bumps the global version stamp. Entries are not eagerly
// deleted; they become logical misses on next access. This makes a
// full-cache invalidation O(1) instead of O(n).
func (c *TaggedCache[V]) InvalidateVersion() {
	c.mu.Lock()
	c.version++
	c.mu.Unlock()
}

// Cleanup sweeps all entries that are expired by TTL or stale by version.
func (c *TaggedCache[V]) Cleanup() int {
	var evicted []taggedEntry[V]

	c.mu.Lock()
	now := c.now()
	stale := make([]*list.Element, 0)
	for _, element := range c.items {
		if c.isStale(element.Value.(*taggedEntry[V]), now) {
			stale = append(stale, element)
		}
	}
	for _, element := range stale {
		evicted = c.removeElement(element, evicted)
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	for range evicted {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
	}
	return len(evicted)
}

// Clear empties the cache and resets statistics counters. The version stamp
// is intentionally NOT reset: entries cached before a clear must never
// resurrect as valid.
func (c *TaggedCache[V]) Clear() error {
	var evicted []taggedEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			evicted = append(evicted, *element.Value.(*taggedEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.tagIndex = make(map[string]map[string]struct{})
	c.order.Init()
	c.memBytes = 0
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	c.stats.Reset()
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	return nil
}

// Size returns the current number of entries, including stale entries that
// have not been swept yet.
func (c *TaggedCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the keys of all logically present entries, most recently used
// first.
func (c *TaggedCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*taggedEntry[V])
		if !c.isStale(entry, now) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Stats returns the cache statistics tracker.
func (c *TaggedCache[V]) Stats() *Statistics {
	return c.stats
}

// Close shuts down the cache and stops the janitor goroutine if running.
func (c *TaggedCache[V]) Close() error {
	c.mu.Lock()
	janitor := c.janitor
	c.mu.Unlock()

	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	if !janitor {
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cleanup goroutine to finish")
	}
}

// removeElement removes an element from the map, recency list, and tag
// index, and updates memory accounting. Must be called with mutex held.
// Does NOT invoke the eviction callback: the removed entry is appended to
// evicted so the caller can notify outside the lock.
func (c *TaggedCache[V]) removeElement(element *list.Element, evicted []taggedEntry[V]) []taggedEntry[V] {
	entry := element.Value.(*taggedEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	c.dropTagsLocked(entry)
	c.memBytes -= c.entryBytes(entry)
	if c.evictFn != nil {
		evicted = append(evicted, *entry)
	}
	return evicted
}

// indexTagsLocked adds the entry's key under each of its tags.
// Must be called with mutex held.
func (c *TaggedCache[V]) indexTagsLocked(entry *taggedEntry[V]) {
	for _, tag := range entry.tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagIndex[tag] = keys
		}
		keys[entry.key] = struct{}{}
	}
}

// dropTagsLocked removes the entry's key from each of its tags, deleting a
// tag entirely once its key set drains. Must be called with mutex held.
func (c *TaggedCache[V]) dropTagsLocked(entry *taggedEntry[V]) {
	for _, tag := range entry.tags {
		if keys, ok := c.tagIndex[tag]; ok {
			delete(keys, entry.key)
			if len(keys) == 0 {
				delete(c.tagIndex, tag)
			}
		}
	}
}

// entryBytes estimates the memory footprint of an entry.
func (c *TaggedCache[V]) entryBytes(entry *taggedEntry[V]) int64 {
	bytes := int64(entryOverhead + len(entry.key) + c.sizeOf(entry.value))
	for _, tag := range entry.tags {
		bytes += int64(len(tag))
	}
	return bytes
}

// updateSizeLocked pushes size and memory gauges to stats and metrics.
// Must be called with mutex held.
func (c *TaggedCache[V]) updateSizeLocked() {
	c.stats.UpdateSize(int64(len(c.items)))
	c.stats.UpdateMemoryUsage(c.memBytes)
	if c.metrics != nil {
		c.metrics.updateSize(len(c.items))
	}
}

// notifyEvicted invokes the eviction callback outside the lock.
func (c *TaggedCache[V]) notifyEvicted(evicted []taggedEntry[V]) {
	if c.evictFn == nil {
		return
	}
	for i := range evicted {
		c.evictFn(evicted[i].key, evicted[i].value)
	}
}

func (c *TaggedCache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

func (c *TaggedCache[V]) recordInvalidations(count int) {
	if count == 0 {
		return
	}
	c.stats.Invalidations(int64(count))
	if c.metrics != nil {
		c.metrics.recordInvalidations(count)
	}
}

// Ensure TaggedCache implements the Cache interface.
var _ Cache[string] = (*TaggedCache[string])(nil)
