package storage

import (
	"sync"
	"time"

	"github.com/maruel/sheetgrid/internal/grid"
)

// columnCacheTTL bounds how long another process's new column can stay
// invisible to window queries served from the cache.
const columnCacheTTL = 5 * time.Second

// columnCache keeps recent column lists per table for window queries.
// Columns are append only and their type never changes, so a stale entry can
// only lack a column; callers refetch when a request names one it lacks.
type columnCache struct {
	mu        sync.RWMutex
	entries   map[string]columnCacheEntry
	maxTables int
	ttl       time.Duration
	now       func() time.Time
}

type columnCacheEntry struct {
	cols    []*grid.Column
	expires time.Time
}

func newColumnCache() *columnCache {
	return &columnCache{
		entries:   make(map[string]columnCacheEntry),
		maxTables: 1024,
		ttl:       columnCacheTTL,
		now:       time.Now,
	}
}

func (c *columnCache) get(tableID string) ([]*grid.Column, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tableID]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.cols, true
}

func (c *columnCache) put(tableID string, cols []*grid.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.entries) >= c.maxTables {
		for id, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, id)
			}
		}
		// Simple eviction: drop everything when still full.
		if len(c.entries) >= c.maxTables {
			clear(c.entries)
		}
	}
	c.entries[tableID] = columnCacheEntry{cols: cols, expires: now.Add(c.ttl)}
}

func (c *columnCache) invalidate(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tableID)
}
