// internal/service/checkout/infrastructure/adapter/cart_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"kasir/internal/pkg/constants"
	"kasir/internal/pkg/httpclient"
	"kasir/internal/service/checkout/domain"
)

// CartHTTPAdapter 购物车服务的 HTTP 适配器。
type CartHTTPAdapter struct {
	client  *httpclient.Client
	timeout time.Duration
}

func NewCartHTTPAdapter(client *httpclient.Client, timeout time.Duration) *CartHTTPAdapter {
	return &CartHTTPAdapter{client: client, timeout: timeout}
}

func (a *CartHTTPAdapter) GetCart(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var cart domain.Cart
	path := fmt.Sprintf("%s?userId=%s&cartId=%s", constants.CartGetPath, userID, cartID)
	if err := a.client.GetJSON(callCtx, constants.CartService, path, &cart); err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return &cart, nil
}

type bulkRemoveRequest struct {
	UserID  string   `json:"userId"`
	CartID  string   `json:"cartId"`
	SubSkus []string `json:"subSkus"`
}

// RemoveItems 从购物车移除条目。会话打开后的清理动作，失败由调用方决定如何处理。
func (a *CartHTTPAdapter) RemoveItems(ctx context.Context, userID, cartID string, subSkus []string) error {
	// 会话已经打开，购物车清理不应被调用方断连打断
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	req := bulkRemoveRequest{UserID: userID, CartID: cartID, SubSkus: subSkus}
	if err := a.client.PostJSON(callCtx, constants.CartService, constants.CartBulkRemove, req, nil); err != nil {
		return errors.Wrap(err, "remove cart items")
	}
	return nil
}
