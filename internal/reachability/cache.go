package reachability

import (
	"context"
	"sync"
	"time"

	"github.com/anime-shed/artwork-matcher/internal/metrics"
)

// DefaultCacheTTL is how long a probe outcome is trusted.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores probe outcomes by URL.
type Cache interface {
	// Get returns the cached outcome and whether a live entry exists.
	Get(url string) (valid bool, ok bool)
	// Put records an outcome, replacing any previous entry.
	Put(url string, valid bool)
	// Sweep removes expired entries and returns how many were removed.
	Sweep() int
}

type cacheEntry struct {
	valid     bool
	checkedAt time.Time
}

// MemoryCache is a TTL map guarded by a RWMutex. Expired entries are
// ignored on read whether or not a sweep has run.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache; a non-positive ttl uses DefaultCacheTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(url string) (bool, bool) {
	c.mu.RLock()
	entry, exists := c.entries[url]
	c.mu.RUnlock()

	if !exists || c.now().Sub(entry.checkedAt) >= c.ttl {
		metrics.ValidationCacheMisses.Inc()
		return false, false
	}
	metrics.ValidationCacheHits.Inc()
	return entry.valid, true
}

func (c *MemoryCache) Put(url string, valid bool) {
	c.mu.Lock()
	c.entries[url] = cacheEntry{valid: valid, checkedAt: c.now()}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.ValidationCacheEntries.Set(float64(size))
}

func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for url, entry := range c.entries {
		if now.Sub(entry.checkedAt) >= c.ttl {
			delete(c.entries, url)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.ValidationCacheEntries.Set(float64(size))
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper sweeps cache every interval until ctx is done.
func StartSweeper(ctx context.Context, cache Cache, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.Sweep()
			}
		}
	}()
}
