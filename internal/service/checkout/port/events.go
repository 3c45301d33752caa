// internal/service/checkout/port/events.go
package port

import (
	"context"

	"kasir/internal/service/checkout/domain"
)

// CheckoutEventProducer 结账事件出站端口。
type CheckoutEventProducer interface {
	Publish(ctx context.Context, event domain.CheckoutEvent) error
}
