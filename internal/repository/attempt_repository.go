package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptRepository counts processing attempts per queued task.
type AttemptRepository interface {
	Incr(ctx context.Context, taskKey string) (int64, error)
	Reset(ctx context.Context, taskKey string) error
}

type redisAttemptRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAttemptRepository creates a Redis-backed AttemptRepository.
// Counters expire after ttl so abandoned tasks do not accumulate.
func NewAttemptRepository(rdb *redis.Client, ttl time.Duration) AttemptRepository {
	return &redisAttemptRepository{rdb: rdb, ttl: ttl}
}

func attemptsKey(taskKey string) string {
	return "kafka:attempts:" + taskKey
}

func (r *redisAttemptRepository) Incr(ctx context.Context, taskKey string) (int64, error) {
	key := attemptsKey(taskKey)
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = r.rdb.Expire(ctx, key, r.ttl).Err()
	return n, nil
}

func (r *redisAttemptRepository) Reset(ctx context.Context, taskKey string) error {
	return r.rdb.Del(ctx, attemptsKey(taskKey)).Err()
}
