// internal/service/checkout/domain/projector.go
package domain

// ProjectCheckoutItem 由购物车条目和库存锁定结果生成结账条目。
// 纯函数: 相同输入必然得到相同输出。
func ProjectCheckoutItem(ci CartItem, reserved bool, reservationError string, availableStock int64) CheckoutItem {
	item := CheckoutItem{
		Sku:                    ci.Sku,
		SubSku:                 ci.SubSku,
		Title:                  ci.Title,
		PriceSnapshot:          ci.Price,
		Quantity:               ci.Quantity,
		AvailableStockSnapshot: availableStock,
		ImageURL:               ci.ImageURL,
		Attributes:             ci.Attributes,
		Reserved:               reserved,
	}
	if !reserved {
		item.ReservationError = reservationError
	}
	return item
}
