package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// VectorCache stores vectors by key.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error
}

type redisVectorCache struct {
	rdb *redis.Client
}

// NewRedisVectorCache stores vectors as JSON strings in Redis.
func NewRedisVectorCache(rdb *redis.Client) VectorCache {
	return &redisVectorCache{rdb: rdb}
}

func (c *redisVectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

func (c *redisVectorCache) Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

type cachedClient struct {
	inner Client
	cache VectorCache
	model string
	ttl   time.Duration
}

// NewCachedClient serves repeated texts from cache and forwards misses to inner.
// Cache failures never fail a call; they are logged and the upstream is used.
func NewCachedClient(inner Client, cache VectorCache, model string, ttl time.Duration) Client {
	return &cachedClient{inner: inner, cache: cache, model: model, ttl: ttl}
}

// CacheKey returns the cache key for text embedded with model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *cachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *cachedClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		vector, ok, err := c.cache.Get(ctx, CacheKey(c.model, text))
		if err != nil {
			log.Warnf("[EmbeddingCache] cache read failed, falling back to upstream: %v", err)
		}
		if ok {
			vectors[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fetched, err := c.inner.CreateEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		vectors[i] = fetched[j]
		if err := c.cache.Set(ctx, CacheKey(c.model, missTexts[j]), fetched[j], c.ttl); err != nil {
			log.Warnf("[EmbeddingCache] cache write failed: %v", err)
		}
	}
	return vectors, nil
}
