package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-routing-service/internal/domain"
)

// Redis-backed cache for finished travel matrices, shared across service
// instances. Entries are JSON-encoded and expire after a TTL so stale
// traffic-aware matrices age out.
type RedisMatrixCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMatrixCache(client *redis.Client, ttl time.Duration) *RedisMatrixCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisMatrixCache{client: client, ttl: ttl}
}

func redisKey(key string) string { return "matrix:" + key }

// Get returns the cached matrix for key. A missing key is not an error.
func (c *RedisMatrixCache) Get(ctx context.Context, key string) (*domain.TravelMatrix, bool, error) {
	if c.client == nil {
		return nil, false, errors.New("redis matrix cache: client is nil")
	}

	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache: %w", err)
	}

	var m domain.TravelMatrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("get matrix cache: decode entry: %w", err)
	}
	return &m, true, nil
}

// Put stores the matrix under key with the configured TTL.
func (c *RedisMatrixCache) Put(ctx context.Context, key string, m *domain.TravelMatrix) error {
	if c.client == nil {
		return errors.New("redis matrix cache: client is nil")
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("insert matrix cache: encode entry: %w", err)
	}

	if err := c.client.Set(ctx, redisKey(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("insert matrix cache: %w", err)
	}
	return nil
}
