// Package resolver caches station-name reconciliation results.
package resolver

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/observability"
)

// Cached wraps a StationResolver with a bounded LRU cache keyed by the
// measurement-table name. Matching is deterministic for a fixed catalog, so a
// cache must be discarded together with the catalog it was built over.
type Cached struct {
	inner   domain.StationResolver
	cache   *lruCache
	metrics *observability.Metrics
}

// tracer is implemented by resolvers that log each match, like
// domain.Matcher with trace enabled.
type tracer interface {
	Trace(result domain.MatchResult)
}

// NewCached creates a cache decorator around inner. metrics may be nil.
func NewCached(inner domain.StationResolver, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Match returns the cached result for name or resolves and caches it.
// Errors are not cached.
func (c *Cached) Match(name string) (domain.MatchResult, error) {
	if result, ok := c.cache.get(name); ok {
		c.record("hit")
		if t, ok := c.inner.(tracer); ok {
			t.Trace(result)
		}
		return result, nil
	}
	c.record("miss")

	result, err := c.inner.Match(name)
	if err != nil {
		return result, err
	}
	c.cache.put(name, result)
	return result, nil
}

// Len returns the number of cached names.
func (c *Cached) Len() int {
	return c.cache.len()
}

func (c *Cached) record(result string) {
	if c.metrics != nil {
		c.metrics.MatchCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache of match results. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	name   string
	result domain.MatchResult
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(name string) (domain.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[name]
	if !ok {
		return domain.MatchResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).result, true
}

func (c *lruCache) put(name string, result domain.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[name]; ok {
		el.Value.(*cacheEntry).result = result
		c.order.MoveToFront(el)
		return
	}

	c.entries[name] = c.order.PushFront(&cacheEntry{name: name, result: result})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).name)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
