// Package redis provides a thin constructor around go-redis/v9 shared by the
// idempotency ledger and the quote cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/dejobratic/quotes/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// CheckHealth pings Redis with a short timeout.
func CheckHealth(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}
