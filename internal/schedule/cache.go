package schedule

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores encoded values with a per-entry TTL. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache that purges expired entries every cleanup
// interval.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns the value stored under key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores value under key for ttl.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) {
	c.store.Delete(key)
}
