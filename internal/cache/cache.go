// Package cache wraps the redis primitives the pipeline coordinates
// through: the global ingest lock and the per-group completion counter.
package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/zulandar/boxcar/internal/config"
)

// Connect opens a redis client and verifies the connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to %s db %d: %w", cfg.Addr, cfg.DB, err)
	}
	return rdb, nil
}
