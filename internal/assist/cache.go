package assist

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a suggestion stays servable from cache.
	DefaultTTL = 15 * time.Minute
	// DefaultSweepInterval is how often expired entries are evicted.
	// Independent of the on-read expiry check; it keeps one-shot keys
	// from accumulating.
	DefaultSweepInterval = 5 * time.Minute
)

// Cache stores suggestion responses keyed by request hash.
type Cache interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Put(ctx context.Context, key string, resp Response, ttl time.Duration) error
}

type cacheEntry struct {
	resp      Response
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a live entry, evicting it if it expired.
func (c *MemoryCache) Get(_ context.Context, key string) (Response, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Response{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return Response{}, false, nil
	}
	return entry.resp, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, resp Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{resp: resp, expiresAt: c.now().Add(ttl)}
	return nil
}

// SweepOnce evicts every expired entry and reports how many were removed.
func (c *MemoryCache) SweepOnce() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep runs SweepOnce on the given interval until ctx is cancelled.
func (c *MemoryCache) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SweepOnce()
		}
	}
}

// Len reports the current entry count, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
