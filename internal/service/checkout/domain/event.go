// internal/service/checkout/domain/event.go
package domain

import "time"

// 结账事件类型
const (
	EventCheckoutOpened    = "CHECKOUT_OPENED"
	EventCheckoutPaid      = "CHECKOUT_PAID"
	EventCheckoutCancelled = "CHECKOUT_CANCELLED"
)

// CheckoutEvent 结账会话生命周期事件，发往消息总线供下游消费。
type CheckoutEvent struct {
	Type       string    `json:"type"`
	CheckoutID string    `json:"checkoutId"`
	UserID     string    `json:"userId"`
	OrderID    string    `json:"orderId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	TotalPrice int64     `json:"totalPrice"`
	At         time.Time `json:"at"`
}
