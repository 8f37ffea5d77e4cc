package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through a fast layer to a durable one and writes both
type LayeredCache struct {
	fast    Cache
	durable Cache
}

// NewLayeredCache stacks a memory cache over a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayers(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// NewLayers stacks any two caches
func NewLayers(fast, durable Cache) *LayeredCache {
	return &LayeredCache{fast: fast, durable: durable}
}

// Get checks the fast layer first and promotes durable hits
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, found, err := c.fast.Get(ctx, key); err == nil && found {
		return val, true, nil
	}

	val, found, err := c.durable.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	_ = c.fast.Set(ctx, key, val, 0)
	return val, true, nil
}

func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.durable.Set(ctx, key, value, ttl)
}

func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.fast.Delete(ctx, key), c.durable.Delete(ctx, key))
}

func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.fast.Clear(ctx), c.durable.Clear(ctx))
}
