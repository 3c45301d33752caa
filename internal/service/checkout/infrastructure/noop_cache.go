// internal/service/checkout/infrastructure/noop_cache.go
package infrastructure

import (
	"context"
	"time"

	"kasir/internal/service/checkout/domain"
)

// NoopCheckoutCache 关闭缓存时使用，所有读取一律未命中。
type NoopCheckoutCache struct{}

func (NoopCheckoutCache) Put(ctx context.Context, checkout *domain.Checkout, ttl time.Duration) error {
	return nil
}

func (NoopCheckoutCache) Get(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	return nil, nil
}

func (NoopCheckoutCache) Remove(ctx context.Context, checkoutID string) error {
	return nil
}
