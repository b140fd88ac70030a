package cache

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
)

// sweepInterval is how often MemoryCache drops expired entries
const sweepInterval = time.Minute

// Cache is a byte-oriented key-value cache with per-entry TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Stats are hit/miss counters of a cache
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries,omitempty"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// StatsReporter is implemented by caches that count hits and misses
type StatsReporter interface {
	Stats() Stats
}

// MemoryCache keeps entries in process. Values are copied on the way in and out.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits   atomic.Uint64
	misses atomic.Uint64

	now    func() time.Time
	log    *logger.Logger
	stop   chan struct{}
	closed sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// NewMemoryCache creates an in-memory cache and starts its expiry sweeper
func NewMemoryCache(log *logger.Logger) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
		log:     log,
		stop:    make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

// Get returns a copy of the value stored under key
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return bytes.Clone(e.value), true, nil
}

// Set stores a copy of value; a non-positive ttl stores an already expired entry
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = entry{value: bytes.Clone(value), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes key; missing keys are not an error
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Close stops the sweeper and drops all entries
func (c *MemoryCache) Close() error {
	c.closed.Do(func() {
		close(c.stop)

		c.mu.Lock()
		c.entries = make(map[string]entry)
		c.mu.Unlock()

		c.log.Info("memory cache closed")
	})
	return nil
}

// Stats reports the entry count and hit ratio counters
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Backend: "memory",
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug("expired cache entries removed", "count", removed)
	}
	return removed
}
