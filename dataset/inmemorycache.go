package dataset

import (
	"slices"
	"sync"
	"time"
)

type cachedColumn struct {
	values   []any
	cachedAt time.Time
}

// InMemoryValuesCache is a simple in-memory implementation of ValuesCache
// Thread-safe for concurrent access
type InMemoryValuesCache struct {
	columns map[string]cachedColumn
	order   []string // insertion order, oldest first
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryValuesCache creates a new in-memory values cache
func NewInMemoryValuesCache(config CacheConfig) *InMemoryValuesCache {
	return &InMemoryValuesCache{
		columns: make(map[string]cachedColumn),
		config:  config,
		now:     time.Now,
	}
}

// Get retrieves cached values
// Returns false if the column is missing or expired
func (c *InMemoryValuesCache) Get(column string) ([]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.columns[column]
	if !ok {
		return nil, false
	}

	// Check TTL if configured
	if c.config.TTL > 0 && c.now().Sub(entry.cachedAt) > c.config.TTL {
		return nil, false
	}

	// Return copy to prevent external modifications
	return slices.Clone(entry.values), true
}

// Set stores values in cache, evicting the oldest column when full
func (c *InMemoryValuesCache) Set(column string, values []any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.columns[column]; !exists {
		if c.config.MaxColumns > 0 && len(c.order) >= c.config.MaxColumns {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.columns, oldest)
		}
		c.order = append(c.order, column)
	}

	c.columns[column] = cachedColumn{
		values:   slices.Clone(values),
		cachedAt: c.now(),
	}
}

// Invalidate clears the cache
func (c *InMemoryValuesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.columns = make(map[string]cachedColumn)
	c.order = nil
}

// Len returns the number of cached columns
func (c *InMemoryValuesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.columns)
}

var _ ValuesCache = (*InMemoryValuesCache)(nil)
