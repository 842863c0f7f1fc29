package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache never stores anything
func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()
	ctx := context.Background()

	if err := cache.SetReply(ctx, "k", "1. Tent", time.Hour); err != nil {
		t.Errorf("Expected no error on SetReply, got %v", err)
	}

	reply, ok, err := cache.GetReply(ctx, "k")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if ok || reply != "" {
		t.Errorf("Expected miss, got %q (ok=%v)", reply, ok)
	}

	if err := cache.Purge(ctx); err != nil {
		t.Errorf("Expected no error on Purge, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}
