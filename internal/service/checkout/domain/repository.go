// internal/service/checkout/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ListQuery 分页查询条件。
type ListQuery struct {
	UserID string
	Status Status // 为空表示不过滤
	Cursor string // 为空表示第一页
	Limit  int
}

// ListResult 一页结账会话和下一页游标。
type ListResult struct {
	Items      []*Checkout
	NextCursor string // 为空表示没有更多
}

// CheckoutRepository 结账会话仓储接口。
type CheckoutRepository interface {
	Create(ctx context.Context, checkout *Checkout) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*Checkout, error)
	// FindWaitingByUser 查找用户的 WAITING 会话，不区分是否过期，
	// 不存在时返回 (nil, nil)。过期判定交给调用方。
	FindWaitingByUser(ctx context.Context, userID string) (*Checkout, error)
	// FindExpired 查找 WAITING 且 ExpiresAt 早于 now 的会话，供清理器批量处理。
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*Checkout, error)
	List(ctx context.Context, query ListQuery) (*ListResult, error)
	// UpdateIfStatus 条件更新: 仅当数据库中状态仍为 from 时写入 next 的终态字段。
	// 未命中任何行时返回 ErrCheckoutNotWaiting，它是并发迁移的唯一仲裁点。
	UpdateIfStatus(ctx context.Context, next *Checkout, from Status) error
}
