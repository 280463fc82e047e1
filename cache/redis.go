package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "telemetry:apikey:"

// RedisCache shares credential lookups between server replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses url and verifies the server answers a PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (rc *RedisCache) Get(ctx context.Context, keyHash string) (string, bool, error) {
	deviceID, err := rc.client.Get(ctx, redisKeyPrefix+keyHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return deviceID, true, nil
}

func (rc *RedisCache) Set(ctx context.Context, keyHash, deviceID string) error {
	return rc.client.Set(ctx, redisKeyPrefix+keyHash, deviceID, rc.ttl).Err()
}

func (rc *RedisCache) Delete(ctx context.Context, keyHash string) error {
	return rc.client.Del(ctx, redisKeyPrefix+keyHash).Err()
}

// HealthCheck pings the backing server.
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
