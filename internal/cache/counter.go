package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// GroupCounter tracks how many media items each media group is expected to
// contribute. Written once per qualifying message at ingest, read and
// deleted only by the migrator.
type GroupCounter interface {
	Increment(ctx context.Context, groupID int64) error
	Get(ctx context.Context, groupID int64) (int64, error)
	Delete(ctx context.Context, groupID int64) error
}

type redisGroupCounter struct {
	rdb *redis.Client
}

// NewGroupCounter returns a redis-backed GroupCounter.
func NewGroupCounter(rdb *redis.Client) GroupCounter {
	return &redisGroupCounter{rdb: rdb}
}

func groupKey(groupID int64) string {
	return "boxcar:group_count:" + strconv.FormatInt(groupID, 10)
}

func (c *redisGroupCounter) Increment(ctx context.Context, groupID int64) error {
	if err := c.rdb.Incr(ctx, groupKey(groupID)).Err(); err != nil {
		return fmt.Errorf("cache: incr group %d: %w", groupID, err)
	}
	return nil
}

// Get returns 0 for groups with no counter entry.
func (c *redisGroupCounter) Get(ctx context.Context, groupID int64) (int64, error) {
	val, err := c.rdb.Get(ctx, groupKey(groupID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache: get group %d: %w", groupID, err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: parse group %d count %q: %w", groupID, val, err)
	}
	return n, nil
}

func (c *redisGroupCounter) Delete(ctx context.Context, groupID int64) error {
	if err := c.rdb.Del(ctx, groupKey(groupID)).Err(); err != nil {
		return fmt.Errorf("cache: del group %d: %w", groupID, err)
	}
	return nil
}
