// Package cache provides the in-memory TTL response cache keyed by full
// request identity (URL + query string).
//
// Entries never outlive their expiry instant: reads lazily evict expired
// entries. Absence is represented as nil, not an error. The cache is mutated
// only through its five operations; no other component reaches into the map.
package cache

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the default lifetime of a cached response.
const DefaultTTL = 5 * time.Minute

// Snapshot is an immutable copy of a successful response. Multiple reads may
// share the same Snapshot, so callers must clone before mutating.
type Snapshot struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Recorder receives cache activity for metrics. All methods may be called
// concurrently.
type Recorder interface {
	CacheHit()
	CacheMiss()
	CacheSize(n int)
}

type entry struct {
	snapshot *Snapshot
	expiry   time.Time
}

// Cache is a TTL cache of response snapshots.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	rec     Recorder
}

// Option configures the Cache.
type Option func(*Cache)

// WithTTL sets the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithNow overrides the clock used for expiry. Intended for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRecorder sets a metrics recorder for hits, misses and size.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.rec = r }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the snapshot for key, or nil on miss. Expired entries are
// evicted and reported as a miss.
func (c *Cache) Get(key string) *Snapshot {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expiry) {
		delete(c.entries, key)
		ok = false
	}
	size := len(c.entries)
	c.mu.Unlock()

	if c.rec != nil {
		if ok {
			c.rec.CacheHit()
		} else {
			c.rec.CacheMiss()
		}
		c.rec.CacheSize(size)
	}
	if !ok {
		return nil
	}
	return e.snapshot
}

// Set stores a snapshot under key, overwriting any existing entry. A zero or
// negative ttl uses the cache default.
func (c *Cache) Set(key string, snap *Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[key] = entry{snapshot: snap, expiry: c.now().Add(ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.CacheSize(size)
	}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.CacheSize(size)
	}
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.CacheSize(0)
	}
}

// InvalidateStartingWith removes every entry whose key starts with prefix.
func (c *Cache) InvalidateStartingWith(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.CacheSize(size)
	}
}

// Len returns the current number of entries, without evicting.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
