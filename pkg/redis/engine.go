package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"clouddesign.com.br/storefront/pkg/global"
)

// NewClient opens the shared Redis client used for carts, checkout state,
// the catalog cache and admin sessions.
func NewClient(settings global.Settings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     settings.RedisAddress,
		Password: settings.RedisPassword,
		DB:       0,
		Protocol: 2,
	})
}

// Ping checks connectivity at startup and for the health endpoint.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
