package cache

import (
	"context"
	"sync"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// entry holds one cached value with its lifecycle timestamps
type entry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache guarded by a single coarse
// lock. Eviction is size-bounded (oldest-created-first) and
// time-bounded (TTL). Sized for a couple thousand entries; no sharding.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	logger     *zap.Logger
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxEntries int, logger *zap.Logger) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	return &MemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Get returns the value for key, or types.ErrCacheMiss if the key is
// absent or its TTL has elapsed
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, types.ErrCacheMiss
	}
	if !time.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, types.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key for ttl. A non-positive ttl stores an
// already-expired entry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Invalidate removes key from the cache
func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Close releases all entries
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return nil
}

// Len returns the number of entries currently held, expired included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictOldest drops the oldest-created entry. Caller holds the lock.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
