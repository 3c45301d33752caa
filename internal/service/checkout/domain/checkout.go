// internal/service/checkout/domain/checkout.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutItem 结账会话中的一个条目。
// Reserved 标记该条目是否成功锁定了库存，
// 未锁定的条目不参与总价计算，也不参与后续的扣减和释放。
type CheckoutItem struct {
	Sku                    string            `json:"sku"`
	SubSku                 string            `json:"subSku"`
	Title                  string            `json:"title"`
	PriceSnapshot          int64             `json:"priceSnapshot"` // 最小货币单位
	Quantity               int32             `json:"quantity"`
	AvailableStockSnapshot int64             `json:"availableStockSnapshot"`
	ImageURL               string            `json:"imageUrl"`
	Attributes             map[string]string `json:"attributes"`
	Reserved               bool              `json:"reserved"`
	ReservationError       string            `json:"reservationError,omitempty"`
}

// Checkout 结账会话聚合根。
type Checkout struct {
	ID              uint64
	CheckoutID      string
	UserID          string
	SourceCartID    string
	OrderID         string
	PaymentCode     string
	Items           []CheckoutItem
	TotalPrice      int64 // 仅对 Reserved 的条目求和
	Currency        string
	Status          Status
	ShippingAddress *AddressSnapshot
	LockedAt        time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// NewCheckoutID 生成结账会话标识，形如 chk-1a2b3c4d。
func NewCheckoutID() string {
	return "chk-" + uuid.NewString()[:8]
}

// NewCheckout 根据条目投影结果构建一个新的等待支付的结账会话。
// 总价只统计成功锁定库存的条目。
func NewCheckout(userID, cartID, currency string, items []CheckoutItem, now time.Time, window time.Duration) *Checkout {
	c := &Checkout{
		CheckoutID:   NewCheckoutID(),
		UserID:       userID,
		SourceCartID: cartID,
		Items:        items,
		Currency:     currency,
		Status:       StatusWaiting,
		LockedAt:     now,
		ExpiresAt:    now.Add(window),
		CreatedAt:    now,
	}
	c.TotalPrice = totalOf(items)
	return c
}

func totalOf(items []CheckoutItem) int64 {
	var total int64
	for _, it := range items {
		if it.Reserved {
			total += it.PriceSnapshot * int64(it.Quantity)
		}
	}
	return total
}

// IsExpired 判断会话在 now 时刻是否已过保留窗口。
func (c *Checkout) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// EffectiveStatus 返回对外呈现的状态: 仍为 WAITING 但已过期的会话
// 在被清理器落库之前，对读请求表现为 CANCELLED。
func (c *Checkout) EffectiveStatus(now time.Time) Status {
	if c.Status == StatusWaiting && c.IsExpired(now) {
		return StatusCancelled
	}
	return c.Status
}

// ReservedItems 返回成功锁定库存的条目。
func (c *Checkout) ReservedItems() []CheckoutItem {
	out := make([]CheckoutItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Reserved {
			out = append(out, it)
		}
	}
	return out
}

// HasReservedItems 判断会话是否持有任何库存锁。
func (c *Checkout) HasReservedItems() bool {
	for _, it := range c.Items {
		if it.Reserved {
			return true
		}
	}
	return false
}

// MarkPaid 校验并执行 WAITING -> PAID 的状态迁移，返回迁移后的副本。
// 实际生效以仓储层的条件更新为准。
func (c *Checkout) MarkPaid(now time.Time, orderID, paymentCode string, addr *AddressSnapshot) (*Checkout, error) {
	if c.Status != StatusWaiting {
		return nil, ErrCheckoutNotWaiting
	}
	if c.IsExpired(now) {
		return nil, ErrCheckoutExpired
	}
	next := *c
	next.Status = StatusPaid
	next.OrderID = orderID
	next.PaymentCode = paymentCode
	next.ShippingAddress = addr
	paidAt := now
	next.PaidAt = &paidAt
	return &next, nil
}

// MarkCancelled 校验并执行 WAITING -> CANCELLED 的状态迁移，返回迁移后的副本。
// 过期后的取消依然允许，清理器正是通过它落库。
func (c *Checkout) MarkCancelled(now time.Time, reason string) (*Checkout, error) {
	if c.Status != StatusWaiting {
		return nil, ErrCheckoutNotWaiting
	}
	next := *c
	next.Status = StatusCancelled
	cancelledAt := now
	next.CancelledAt = &cancelledAt
	next.CancelReason = reason
	return &next, nil
}
