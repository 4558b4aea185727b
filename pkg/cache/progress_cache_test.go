package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "lesson_progress", 1, 2); ok {
		t.Fatal("hit on an empty cache")
	}

	c.Set(ctx, "lesson_progress", 1, 2, "payload")
	got, ok := c.Get(ctx, "lesson_progress", 1, 2)
	if !ok || got != "payload" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	// Same ids under a different kind are a different key.
	if _, ok := c.Get(ctx, "course_progress", 1, 2); ok {
		t.Error("kind is not part of the key")
	}

	c.Invalidate(ctx, "lesson_progress", 1, 2)
	if _, ok := c.Get(ctx, "lesson_progress", 1, 2); ok {
		t.Error("hit after invalidation")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "lesson_progress", 1, 1, "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(ctx, "lesson_progress", 1, 1); ok {
		t.Error("entry survived its TTL")
	}
}
