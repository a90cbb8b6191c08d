package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lionarc/dein-p3-markt/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// LookupCache caches code lookups. Unknown codes are never cached.
type LookupCache interface {
	Get(ctx context.Context, code string) (*domain.Product, error)
	Set(ctx context.Context, code string, product *domain.Product) error
	Delete(ctx context.Context, codes ...string) error
}

type RedisLookupCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisLookupCache(client *redis.Client, baseTTL time.Duration) *RedisLookupCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisLookupCache{client: client, baseTTL: baseTTL}
}

func (r *RedisLookupCache) Get(ctx context.Context, code string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, cacheKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &p, nil
}

func (r *RedisLookupCache) Set(ctx context.Context, code string, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/3) + 1))
	if err := r.client.Set(ctx, cacheKey(code), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisLookupCache) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = cacheKey(code)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(code string) string {
	return fmt.Sprintf("product:code:%s", code)
}

// NopCache always misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.Product, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, string, *domain.Product) error   { return nil }
func (NopCache) Delete(context.Context, ...string) error              { return nil }
