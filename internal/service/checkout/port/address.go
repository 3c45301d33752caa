// internal/service/checkout/port/address.go
package port

import (
	"context"

	"kasir/internal/service/checkout/domain"
)

// AddressResolver 会员服务出站端口，用于拉取收货地址快照。
type AddressResolver interface {
	ResolveAddress(ctx context.Context, userID, addressID string) (*domain.AddressSnapshot, error)
}
