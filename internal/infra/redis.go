package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/faceguard/faceguard/internal/config"
)

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// ConnectRedis opens a client when REDIS_URL is set or Redis is the store
// backend, and returns nil otherwise.
func ConnectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" && cfg.StoreBackend != config.BackendRedis {
		return nil, nil
	}
	return NewRedisClient(ctx, cfg.RedisURL)
}
