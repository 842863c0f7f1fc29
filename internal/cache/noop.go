package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when caching is disabled or Redis is unavailable.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetReply always misses.
func (c *NoOpCache) GetReply(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (c *NoOpCache) SetReply(ctx context.Context, key, reply string, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Purge(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
