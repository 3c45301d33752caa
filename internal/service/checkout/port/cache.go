// internal/service/checkout/port/cache.go
package port

import (
	"context"
	"time"

	"kasir/internal/service/checkout/domain"
)

// CheckoutCache 结账会话读缓存端口。
// 缓存只是加速读路径，任何方法失败都不应阻断主流程。
type CheckoutCache interface {
	Put(ctx context.Context, checkout *domain.Checkout, ttl time.Duration) error
	// Get 未命中时返回 (nil, nil)。
	Get(ctx context.Context, checkoutID string) (*domain.Checkout, error)
	Remove(ctx context.Context, checkoutID string) error
}
