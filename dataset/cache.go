package dataset

import "time"

// ValuesCache keeps column values read from a backing store so that several
// rules on the same column issue a single query per run.
// This allows swapping between in-memory or external caching implementations.
type ValuesCache interface {
	// Get returns the cached values of a column, or false on miss or expiry
	Get(column string) ([]any, bool)

	// Set stores the values of a column
	Set(column string, values []any)

	// Invalidate drops every cached column
	Invalidate()

	// Len returns the number of cached columns
	Len() int
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached columns
	// Set to 0 for no expiration (manual invalidation only)
	TTL time.Duration

	// MaxColumns bounds how many columns are kept; 0 means unbounded
	MaxColumns int
}

// DefaultCacheConfig returns the defaults used by table sources
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        0, // sources are read-only during a run
		MaxColumns: 64,
	}
}
