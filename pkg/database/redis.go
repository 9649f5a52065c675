package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

// RDB backs the embedding cache and the queue attempt counters.
var RDB *redis.Client

// NewRedisClient connects to cfg.Addr and verifies the server answers.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisPingTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// InitRedis sets RDB and exits the process when Redis is unreachable.
func InitRedis(cfg config.RedisConfig) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	RDB = client
	log.Infof("Redis client connected to %s (db %d)", cfg.Addr, cfg.DB)
}
