package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

const productListKey = "catalog:products"

// RedisCache is a CatalogCache backed by Redis with JSON values.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewRedisCache creates a RedisCache. Entries live for ttl plus up to a
// minute of jitter so they do not all expire together.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

// GetProducts returns the cached product list or ErrCacheMiss.
func (r *RedisCache) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.get(ctx, productListKey, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SetProducts caches the product list.
func (r *RedisCache) SetProducts(ctx context.Context, products []models.Product) error {
	return r.set(ctx, productListKey, products)
}

// GetProduct returns one cached product or ErrCacheMiss.
func (r *RedisCache) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.get(ctx, productKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SetProduct caches one product under its ID.
func (r *RedisCache) SetProduct(ctx context.Context, product *models.Product) error {
	return r.set(ctx, productKey(product.ID), product)
}

// Invalidate deletes the product list and the given products in one DEL.
func (r *RedisCache) Invalidate(ctx context.Context, productIDs ...string) error {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, productListKey)
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Int63n(int64(time.Minute)))
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productKey(id string) string {
	return fmt.Sprintf("catalog:product:%s", id)
}
