// internal/service/checkout/port/inventory.go
package port

import "context"

// StockOperationItem 批量库存操作中的一个条目。
type StockOperationItem struct {
	SubSku   string `json:"subSku"`
	Quantity int32  `json:"quantity"`
}

// StockOperationResult 单个条目的操作结果。
type StockOperationResult struct {
	SubSku       string `json:"subSku"`
	Quantity     int32  `json:"quantity"`
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	CurrentStock int64  `json:"currentStock"`
}

// BulkStockResult 一次批量库存操作的完整结果。
// 批量操作不返回 error: 传输层失败被折算成全部条目失败，
// 调用方只根据逐条结果做局部成败记账。
type BulkStockResult struct {
	CheckoutID   string                 `json:"checkoutId"`
	AllSuccess   bool                   `json:"allSuccess"`
	FailureCount int                    `json:"failureCount"`
	Results      []StockOperationResult `json:"results"`
}

// ResultFor 按 SubSku 查找条目结果。
func (r *BulkStockResult) ResultFor(subSku string) (StockOperationResult, bool) {
	for _, res := range r.Results {
		if res.SubSku == subSku {
			return res, true
		}
	}
	return StockOperationResult{}, false
}

// FailedBulkResult 将一次整体失败折算成逐条失败的结果。
func FailedBulkResult(checkoutID string, items []StockOperationItem, reason string) *BulkStockResult {
	results := make([]StockOperationResult, 0, len(items))
	for _, it := range items {
		results = append(results, StockOperationResult{
			SubSku:   it.SubSku,
			Quantity: it.Quantity,
			Success:  false,
			Message:  reason,
		})
	}
	return &BulkStockResult{
		CheckoutID:   checkoutID,
		AllSuccess:   false,
		FailureCount: len(items),
		Results:      results,
	}
}

// InventoryService 库存服务出站端口。
type InventoryService interface {
	// BulkLockStock 为结账会话锁定库存，ttlSeconds 是远端锁的保留时长。
	BulkLockStock(ctx context.Context, checkoutID string, items []StockOperationItem, ttlSeconds int64) *BulkStockResult
	// BulkAcquireStock 将已锁定的库存转为实际扣减。
	BulkAcquireStock(ctx context.Context, checkoutID string, items []StockOperationItem) *BulkStockResult
	// BulkReleaseStock 归还已锁定的库存。
	BulkReleaseStock(ctx context.Context, checkoutID string, items []StockOperationItem) *BulkStockResult
	// GetAvailableStock 查询可售库存，查询失败时返回 0。
	GetAvailableStock(ctx context.Context, subSku string) int64
}
