package services

import (
	"sync"
	"time"

	"salespulse/internal/datatable"
)

// cacheTTL is the freshness window of cached query results.
const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	table *datatable.Table
	at    time.Time
}

// queryCache is a keyed table cache with a fixed freshness window. Tables are
// cloned on both put and get so callers can never mutate a cached copy.
type queryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *queryCache) get(key string) (*datatable.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.at) > c.ttl {
		return nil, false
	}
	return entry.table.Clone(), true
}

func (c *queryCache) put(key string, t *datatable.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{table: t.Clone(), at: c.now()}
}

func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
