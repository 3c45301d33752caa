// internal/service/checkout/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kasir/internal/service/checkout/domain"
)

// GormCheckoutRepository 基于 MySQL 的结账会话仓储实现。
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository 创建仓储并迁移表结构。
func NewGormCheckoutRepository(db *gorm.DB) (*GormCheckoutRepository, error) {
	if err := db.AutoMigrate(&CheckoutModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate checkouts table")
	}
	return &GormCheckoutRepository{db: db}, nil
}

func (r *GormCheckoutRepository) Create(ctx context.Context, checkout *domain.Checkout) error {
	model, err := toModel(checkout)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "insert checkout")
	}
	checkout.ID = model.ID
	return nil
}

func (r *GormCheckoutRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	var model CheckoutModel
	err := r.db.WithContext(ctx).Where("checkout_id = ?", checkoutID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query checkout")
	}
	return toDomain(&model)
}

func (r *GormCheckoutRepository) FindWaitingByUser(ctx context.Context, userID string) (*domain.Checkout, error) {
	var model CheckoutModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(domain.StatusWaiting)).
		Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query waiting checkout")
	}
	return toDomain(&model)
}

func (r *GormCheckoutRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Checkout, error) {
	var models []CheckoutModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", string(domain.StatusWaiting), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query expired checkouts")
	}

	out := make([]*domain.Checkout, 0, len(models))
	for i := range models {
		c, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *GormCheckoutRepository) List(ctx context.Context, query domain.ListQuery) (*domain.ListResult, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", query.UserID)
	if query.Status != "" {
		q = q.Where("status = ?", string(query.Status))
	}
	if query.Cursor != "" {
		lastID, err := decodeCursor(query.Cursor)
		if err != nil {
			return nil, err
		}
		q = q.Where("id < ?", lastID)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	var models []CheckoutModel
	// 多取一条用于判断是否还有下一页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list checkouts")
	}

	result := &domain.ListResult{}
	hasMore := len(models) > limit
	if hasMore {
		models = models[:limit]
	}
	for i := range models {
		c, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, c)
	}
	if hasMore && len(models) > 0 {
		result.NextCursor = encodeCursor(models[len(models)-1].ID)
	}
	return result, nil
}

// UpdateIfStatus 条件更新终态字段，状态列是唯一的并发仲裁点。
func (r *GormCheckoutRepository) UpdateIfStatus(ctx context.Context, next *domain.Checkout, from domain.Status) error {
	model, err := toModel(next)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":           model.Status,
		"order_id":         model.OrderID,
		"payment_code":     model.PaymentCode,
		"shipping_address": model.ShippingAddress,
		"paid_at":          model.PaidAt,
		"cancelled_at":     model.CancelledAt,
		"cancel_reason":    model.CancelReason,
	}

	tx := r.db.WithContext(ctx).
		Model(&CheckoutModel{}).
		Where("checkout_id = ? AND status = ?", next.CheckoutID, string(from)).
		Updates(updates)
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "update checkout status")
	}
	if tx.RowsAffected == 0 {
		return domain.ErrCheckoutNotWaiting
	}
	return nil
}

func encodeCursor(id uint64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(id, 10)))
}

func decodeCursor(cursor string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errors.Wrap(err, "decode cursor")
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse cursor")
	}
	return id, nil
}
