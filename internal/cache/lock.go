package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// ingestLockKey is the single TTL'd key that pauses download dispatch
// process-wide while transient upstream failures drain.
const ingestLockKey = "boxcar:ingest_lock"

// IngestLock is the cooperative backpressure signal between the reconciler
// (which sets it after a bad fetch) and the scheduler (which polls it).
// It is not a mutex: holders never block each other, readers only wait.
type IngestLock interface {
	Acquire(ctx context.Context, ttl time.Duration) error
	Held(ctx context.Context) (bool, error)
}

type redisIngestLock struct {
	rdb *redis.Client
}

// NewIngestLock returns a redis-backed IngestLock.
func NewIngestLock(rdb *redis.Client) IngestLock {
	return &redisIngestLock{rdb: rdb}
}

func (l *redisIngestLock) Acquire(ctx context.Context, ttl time.Duration) error {
	return l.rdb.Set(ctx, ingestLockKey, 1, ttl).Err()
}

func (l *redisIngestLock) Held(ctx context.Context) (bool, error) {
	_, err := l.rdb.Get(ctx, ingestLockKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
