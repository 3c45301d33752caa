// internal/service/checkout/infrastructure/adapter/inventory_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"time"

	"kasir/internal/pkg/constants"
	"kasir/internal/pkg/httpclient"
	"kasir/internal/pkg/logger"
	"kasir/internal/service/checkout/port"
)

// InventoryHTTPAdapter 库存服务的 HTTP 适配器。
// 批量操作对错误一律折算成逐条失败: 调用方永远拿到一份完整的逐条结果。
type InventoryHTTPAdapter struct {
	client  *httpclient.Client
	timeout time.Duration
}

func NewInventoryHTTPAdapter(client *httpclient.Client, timeout time.Duration) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, timeout: timeout}
}

type bulkStockRequest struct {
	CheckoutID string                    `json:"checkoutId"`
	Items      []port.StockOperationItem `json:"items"`
	TTLSeconds int64                     `json:"ttlSeconds,omitempty"`
}

func (a *InventoryHTTPAdapter) BulkLockStock(ctx context.Context, checkoutID string, items []port.StockOperationItem, ttlSeconds int64) *port.BulkStockResult {
	return a.bulkCall(ctx, constants.InventoryBulkLockPath, "bulk_lock", bulkStockRequest{
		CheckoutID: checkoutID,
		Items:      items,
		TTLSeconds: ttlSeconds,
	})
}

func (a *InventoryHTTPAdapter) BulkAcquireStock(ctx context.Context, checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
	return a.bulkCall(ctx, constants.InventoryBulkAcquirePath, "bulk_acquire", bulkStockRequest{
		CheckoutID: checkoutID,
		Items:      items,
	})
}

func (a *InventoryHTTPAdapter) BulkReleaseStock(ctx context.Context, checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
	return a.bulkCall(ctx, constants.InventoryBulkReleasePath, "bulk_release", bulkStockRequest{
		CheckoutID: checkoutID,
		Items:      items,
	})
}

// bulkCall 执行一次批量库存操作。
// 调用方断开连接不应中断已经发出的库存操作，这里把取消信号剥离，只保留超时。
func (a *InventoryHTTPAdapter) bulkCall(ctx context.Context, path, op string, req bulkStockRequest) *port.BulkStockResult {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	var result port.BulkStockResult
	if err := a.client.PostJSON(callCtx, constants.InventoryService, path, req, &result); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("operation", op).
			Str("checkout_id", req.CheckoutID).
			Int("item_count", len(req.Items)).
			Msg("inventory bulk call failed")
		return port.FailedBulkResult(req.CheckoutID, req.Items, "inventory service unavailable")
	}
	return &result
}

type availableStockResponse struct {
	SubSku         string `json:"subSku"`
	AvailableStock int64  `json:"availableStock"`
}

// GetAvailableStock 查询可售库存，任何失败都按 0 处理。
func (a *InventoryHTTPAdapter) GetAvailableStock(ctx context.Context, subSku string) int64 {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	var resp availableStockResponse
	path := fmt.Sprintf("%s?subSku=%s", constants.InventoryFindBySubSku, subSku)
	if err := a.client.GetJSON(callCtx, constants.InventoryService, path, &resp); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("sub_sku", subSku).
			Msg("failed to query available stock")
		return 0
	}
	return resp.AvailableStock
}
