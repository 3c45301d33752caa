// internal/service/checkout/port/cart.go
package port

import (
	"context"

	"kasir/internal/service/checkout/domain"
)

// CartService 购物车服务出站端口。
type CartService interface {
	GetCart(ctx context.Context, userID, cartID string) (*domain.Cart, error)
	// RemoveItems 从购物车移除已锁定的条目，尽力而为。
	RemoveItems(ctx context.Context, userID, cartID string, subSkus []string) error
}
