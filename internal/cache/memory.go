package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when no Redis address is
// configured, and in unit tests. Expired entries are dropped lazily on read
// and swept periodically in the background. The clock is injectable so the
// expiry boundary is testable.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	Now     func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]memoryEntry),
		Now:       time.Now,
		sweepStop: make(chan struct{}),
	}
}

// StartSweep launches the background pass that evicts expired entries.
// Stop it with Close at shutdown.
func (c *MemoryCache) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.sweepStop:
				return
			}
		}
	}()
}

// Sweep removes every expired entry in one pass.
func (c *MemoryCache) Sweep() {
	now := c.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a Set may have replaced the
		// entry between the two lock acquisitions.
		if current, ok := c.entries[key]; ok && c.Now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: c.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) InvalidatePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *MemoryCache) Close() error {
	c.sweepOnce.Do(func() {
		close(c.sweepStop)
	})
	return nil
}
