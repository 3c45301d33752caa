// internal/service/checkout/domain/errors.go
package domain

import "errors"

var (
	// ErrCartEmpty 购物车为空，无法发起结账。
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCheckoutNotFound 结账会话不存在。
	ErrCheckoutNotFound = errors.New("checkout not found")
	// ErrCheckoutNotWaiting 会话不在 WAITING 状态，状态迁移被拒绝。
	ErrCheckoutNotWaiting = errors.New("checkout is not in waiting state")
	// ErrCheckoutExpired 会话已过保留窗口。
	ErrCheckoutExpired = errors.New("checkout has expired")
	// ErrAcquireFailed 扣减库存失败，会话保持 WAITING 以便重试。
	ErrAcquireFailed = errors.New("failed to acquire reserved stock")
	// ErrNotOwner 会话不属于当前用户。
	ErrNotOwner = errors.New("checkout does not belong to user")
	// ErrAddressNotFound 用户收货地址不存在。
	ErrAddressNotFound = errors.New("shipping address not found")
)
