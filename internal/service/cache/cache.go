package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Key builds a cache key for a batch of symbols.
// Order is kept so that the workers see the same batch layout.
func Key(kind string, symbols []string) string {
	return fmt.Sprintf("%s:%s", kind, strings.Join(symbols, ","))
}

// JobKey is the key under which an async batch result is stored.
func JobKey(id string) string {
	return "job:" + id
}

// Layered is a two level cache: memory first, then the shared backend.
// Writes go through to both layers; a backend hit is copied into memory.
type Layered struct {
	l1 *MemoryCache
	l2 Backend
}

// Backend is the slower shared layer.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

func NewLayered(l1 *MemoryCache, l2 Backend) *Layered {
	return &Layered{l1: l1, l2: l2}
}

func (c *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.Get(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.Set(ctx, key, b, c.l1.defaultTTL)
	return b, true, nil
}

func (c *Layered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, val, ttl); err != nil {
		return err
	}
	return c.l1.Set(ctx, key, val, ttl)
}
