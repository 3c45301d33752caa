// internal/service/checkout/application/dto.go
package application

import (
	"time"

	"kasir/internal/service/checkout/domain"
)

// CheckoutItemView 结账条目的对外表示。
type CheckoutItemView struct {
	Sku              string            `json:"sku"`
	SubSku           string            `json:"subSku"`
	Title            string            `json:"title"`
	Price            int64             `json:"price"`
	Quantity         int32             `json:"quantity"`
	AvailableStock   int64             `json:"availableStock"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	Reserved         bool              `json:"reserved"`
	ReservationError string            `json:"reservationError,omitempty"`
}

// CheckoutView 结账会话的对外表示。
// Status 为对外有效状态: 过了保留窗口但尚未被清理的会话呈现为 CANCELLED。
type CheckoutView struct {
	CheckoutID      string                  `json:"checkoutId"`
	UserID          string                  `json:"userId"`
	SourceCartID    string                  `json:"sourceCartId,omitempty"`
	OrderID         string                  `json:"orderId,omitempty"`
	PaymentCode     string                  `json:"paymentCode,omitempty"`
	Items           []CheckoutItemView      `json:"items"`
	TotalPrice      int64                   `json:"totalPrice"`
	Currency        string                  `json:"currency"`
	Status          string                  `json:"status"`
	ShippingAddress *domain.AddressSnapshot `json:"shippingAddress,omitempty"`
	LockedAt        time.Time               `json:"lockedAt"`
	ExpiresAt       time.Time               `json:"expiresAt"`
	PaidAt          *time.Time              `json:"paidAt,omitempty"`
	CancelledAt     *time.Time              `json:"cancelledAt,omitempty"`
	CancelReason    string                  `json:"cancelReason,omitempty"`
}

// CheckoutListView 分页结果的对外表示。
type CheckoutListView struct {
	Items      []CheckoutView `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// ToCheckoutView 将聚合根折算成视图，now 用于计算有效状态。
func ToCheckoutView(c *domain.Checkout, now time.Time) CheckoutView {
	items := make([]CheckoutItemView, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CheckoutItemView{
			Sku:              it.Sku,
			SubSku:           it.SubSku,
			Title:            it.Title,
			Price:            it.PriceSnapshot,
			Quantity:         it.Quantity,
			AvailableStock:   it.AvailableStockSnapshot,
			ImageURL:         it.ImageURL,
			Attributes:       it.Attributes,
			Reserved:         it.Reserved,
			ReservationError: it.ReservationError,
		})
	}
	return CheckoutView{
		CheckoutID:      c.CheckoutID,
		UserID:          c.UserID,
		SourceCartID:    c.SourceCartID,
		OrderID:         c.OrderID,
		PaymentCode:     c.PaymentCode,
		Items:           items,
		TotalPrice:      c.TotalPrice,
		Currency:        c.Currency,
		Status:          string(c.EffectiveStatus(now)),
		ShippingAddress: c.ShippingAddress,
		LockedAt:        c.LockedAt,
		ExpiresAt:       c.ExpiresAt,
		PaidAt:          c.PaidAt,
		CancelledAt:     c.CancelledAt,
		CancelReason:    c.CancelReason,
	}
}
