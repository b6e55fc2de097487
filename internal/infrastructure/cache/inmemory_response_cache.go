package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a cached value with its expiration
type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryResponseCache implements ResponseCache using an in-memory map.
// State is per process; use the Redis cache to share entries across instances.
type InMemoryResponseCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryResponseCache creates a cache and starts a sweeper that removes
// expired entries every sweepInterval (default 1 minute)
func NewInMemoryResponseCache(sweepInterval time.Duration) *InMemoryResponseCache {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	c := &InMemoryResponseCache{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop(sweepInterval)

	return c
}

// Get returns a value that has not expired
func (c *InMemoryResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a copy of value for ttl
func (c *InMemoryResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)

	c.mu.Lock()
	c.entries[key] = entry{value: copied, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes a key
func (c *InMemoryResponseCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (c *InMemoryResponseCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryResponseCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries
func (c *InMemoryResponseCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of stored entries, expired ones included
func (c *InMemoryResponseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ ResponseCache = (*InMemoryResponseCache)(nil)
