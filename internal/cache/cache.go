package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache stores completion replies for generated shopping lists.
type Cache interface {
	// GetReply retrieves a cached reply by key.
	// ok is false on a miss.
	GetReply(ctx context.Context, key string) (reply string, ok bool, err error)

	// SetReply stores a reply with TTL.
	SetReply(ctx context.Context, key, reply string, ttl time.Duration) error

	// Purge drops every cached reply.
	Purge(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// GenerateCacheKey derives a key from the model and the normalized event name,
// so "Camping Trip" and " camping   trip" share an entry.
func GenerateCacheKey(model, event string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(event), " "))
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(normalized)
	return strconv.FormatUint(h.Sum64(), 16)
}
