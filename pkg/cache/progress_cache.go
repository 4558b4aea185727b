package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ProgressCache memoizes activity log reads. There is exactly one key
// shape per record — (kind, entity, user) — so a mutation has exactly
// one key to invalidate. The cache is never the source of truth: every
// method degrades to a miss on any error.
type ProgressCache interface {
	Get(ctx context.Context, kind string, entityID, userID uint) (string, bool)
	Set(ctx context.Context, kind string, entityID, userID uint, value string)
	Invalidate(ctx context.Context, kind string, entityID, userID uint)
}

func cacheKey(kind string, entityID, userID uint) string {
	return fmt.Sprintf("progress:%s:%d:%d", kind, entityID, userID)
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, kind string, entityID, userID uint) (string, bool) {
	v, err := c.rdb.Get(ctx, cacheKey(kind, entityID, userID)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, kind string, entityID, userID uint, value string) {
	c.rdb.Set(ctx, cacheKey(kind, entityID, userID), value, c.ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, kind string, entityID, userID uint) {
	c.rdb.Del(ctx, cacheKey(kind, entityID, userID))
}

// MemoryCache is a map-backed ProgressCache for tests and deployments
// without redis. TTL expiry is checked lazily on Get.
type MemoryCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, m: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, kind string, entityID, userID uint) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[cacheKey(kind, entityID, userID)]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, kind string, entityID, userID uint, value string) {
	c.mu.Lock()
	c.m[cacheKey(kind, entityID, userID)] = memoryEntry{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, kind string, entityID, userID uint) {
	c.mu.Lock()
	delete(c.m, cacheKey(kind, entityID, userID))
	c.mu.Unlock()
}
