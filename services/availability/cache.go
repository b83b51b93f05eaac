package availability

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tripnest/models"

	"github.com/go-redis/redis/v8"
)

// Cache stores availability results keyed by the exact query triple.
type Cache interface {
	Get(ctx context.Context, key string) (*models.AvailabilityResult, bool)
	Set(ctx context.Context, key string, res *models.AvailabilityResult, ttl time.Duration)
}

// RedisCache backs the resolver cache with Redis.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.AvailabilityResult, bool) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var res models.AvailabilityResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res *models.AvailabilityResult, ttl time.Duration) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	c.Client.Set(ctx, key, data, ttl)
}

// MemoryCache is an in-process TTL cache used in tests and as a
// standalone fallback when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	result  *models.AvailabilityResult
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.AvailabilityResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

func (c *MemoryCache) Set(_ context.Context, key string, res *models.AvailabilityResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{result: res, expires: time.Now().Add(ttl)}
}
