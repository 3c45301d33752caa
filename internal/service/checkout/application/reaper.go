// internal/service/checkout/application/reaper.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"kasir/internal/pkg/logger"
	"kasir/internal/service/checkout/domain"
)

var reapedCheckouts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "checkout_expired_reaped_total",
	Help: "Number of expired checkouts cancelled by the reaper.",
})

// SweepLock 清理周期的互斥锁，多实例部署时保证同一时刻只有一个实例在扫描。
type SweepLock interface {
	TryLock() error
	Unlock() error
}

// noopSweepLock 单实例部署时不需要互斥。
type noopSweepLock struct{}

func (noopSweepLock) TryLock() error { return nil }
func (noopSweepLock) Unlock() error  { return nil }

// ExpiryReaper 过期会话清理器。
// 周期性扫描过期的 WAITING 会话，把它们迁移到 CANCELLED 并归还库存。
type ExpiryReaper struct {
	svc       *CheckoutService
	repo      domain.CheckoutRepository
	lock      SweepLock
	interval  time.Duration
	batchSize int
	busyErr   error // lock 被占用时返回的错误
}

// NewExpiryReaper 组装清理器。lock 为 nil 时退化为单实例模式。
func NewExpiryReaper(svc *CheckoutService, repo domain.CheckoutRepository, lock SweepLock, busyErr error, interval time.Duration, batchSize int) *ExpiryReaper {
	if lock == nil {
		lock = noopSweepLock{}
	}
	return &ExpiryReaper{
		svc:       svc,
		repo:      repo,
		lock:      lock,
		interval:  interval,
		batchSize: batchSize,
		busyErr:   busyErr,
	}
}

// Run 启动清理循环，直到 ctx 取消。
func (r *ExpiryReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Ctx(ctx).Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("expiry reaper started")

	for {
		select {
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("expiry reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.SweepOnce(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

// SweepOnce 执行一轮扫描。锁被其他实例持有时直接跳过本轮。
func (r *ExpiryReaper) SweepOnce(ctx context.Context) error {
	if err := r.lock.TryLock(); err != nil {
		if r.busyErr != nil && errors.Is(err, r.busyErr) {
			logger.Ctx(ctx).Debug().Msg("sweep lock busy, skipping round")
			return nil
		}
		return errors.Wrap(err, "acquire sweep lock")
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	now := r.svc.Now()
	expired, err := r.repo.FindExpired(ctx, now, r.batchSize)
	if err != nil {
		return errors.Wrap(err, "find expired checkouts")
	}
	if len(expired) == 0 {
		return nil
	}

	reaped := 0
	for _, checkout := range expired {
		won, err := r.svc.CancelExpired(ctx, checkout)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("checkout_id", checkout.CheckoutID).
				Msg("failed to cancel expired checkout")
			continue
		}
		if won {
			reaped++
			reapedCheckouts.Inc()
		}
	}

	logger.Ctx(ctx).Info().
		Int("candidates", len(expired)).
		Int("reaped", reaped).
		Msg("expiry sweep finished")
	return nil
}
