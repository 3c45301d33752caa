// internal/service/checkout/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"kasir/internal/service/checkout/domain"
)

const checkoutCachePrefix = "checkout:"

// RedisCheckoutCache 结账会话的 Redis 读缓存。
type RedisCheckoutCache struct {
	client *goredis.Client
}

func NewRedisCheckoutCache(client *goredis.Client) *RedisCheckoutCache {
	return &RedisCheckoutCache{client: client}
}

func (c *RedisCheckoutCache) Put(ctx context.Context, checkout *domain.Checkout, ttl time.Duration) error {
	raw, err := json.Marshal(checkout)
	if err != nil {
		return errors.Wrap(err, "marshal checkout for cache")
	}
	if err := c.client.Set(ctx, checkoutCachePrefix+checkout.CheckoutID, raw, ttl).Err(); err != nil {
		return errors.Wrap(err, "write checkout cache")
	}
	return nil
}

func (c *RedisCheckoutCache) Get(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	raw, err := c.client.Get(ctx, checkoutCachePrefix+checkoutID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read checkout cache")
	}
	var checkout domain.Checkout
	if err := json.Unmarshal(raw, &checkout); err != nil {
		return nil, errors.Wrap(err, "unmarshal cached checkout")
	}
	return &checkout, nil
}

func (c *RedisCheckoutCache) Remove(ctx context.Context, checkoutID string) error {
	if err := c.client.Del(ctx, checkoutCachePrefix+checkoutID).Err(); err != nil {
		return errors.Wrap(err, "delete checkout cache")
	}
	return nil
}
