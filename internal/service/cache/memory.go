package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// MemoryCache is an in-process byte cache with per-entry TTL.
type MemoryCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryCache creates a cache holding at most maxSize entries
// (0 means unbounded). defaultTTL applies to entries copied from a slower layer.
func NewMemoryCache(maxSize int, defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		m:          make(map[string]entry),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.v))
	copy(out, e.v)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	v := make([]byte, len(val))
	copy(v, val)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && c.maxSize > 0 && len(c.m) >= c.maxSize {
		c.evictLocked()
	}
	c.m[key] = entry{v: v, exp: exp}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// evictLocked drops expired entries, or the entry closest to expiry when none are.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	var victim string
	var soonest time.Time
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
			continue
		}
		if victim == "" || (!e.exp.IsZero() && (soonest.IsZero() || e.exp.Before(soonest))) {
			victim, soonest = k, e.exp
		}
	}
	if len(c.m) >= c.maxSize && victim != "" {
		delete(c.m, victim)
	}
}
