// internal/service/checkout/application/reaper_test.go
package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasir/internal/service/checkout/domain"
	"kasir/internal/service/checkout/port"
)

var errLockBusy = errors.New("lock is held by another instance")

// busyLock 始终拿不到锁的替身。
type busyLock struct{}

func (busyLock) TryLock() error { return errLockBusy }
func (busyLock) Unlock() error  { return nil }

// countingLock 记录加解锁次数。
type countingLock struct {
	locks   int
	unlocks int
}

func (l *countingLock) TryLock() error { l.locks++; return nil }
func (l *countingLock) Unlock() error  { l.unlocks++; return nil }

func newReaper(f *testFixture, lock SweepLock) *ExpiryReaper {
	return NewExpiryReaper(f.svc, f.repo, lock, errLockBusy, 30*time.Second, 100)
}

func TestSweepCancelsExpiredCheckouts(t *testing.T) {
	f := newFixture()

	c, err := f.svc.OpenCheckout(context.Background(), "user-1", "cart-1")
	require.NoError(t, err)

	f.clock.Advance(901 * time.Second)

	lock := &countingLock{}
	require.NoError(t, newReaper(f, lock).SweepOnce(context.Background()))

	stored := f.repo.get(c.CheckoutID)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Equal(t, domain.ReasonExpired, stored.CancelReason)
	require.NotNil(t, stored.CancelledAt)

	// 释放恰好一次
	assert.Equal(t, 1, f.inventory.releaseCount())
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)
	assert.Len(t, f.events.byType(domain.EventCheckoutCancelled), 1)
}

func TestSweepSkipsUnexpiredCheckouts(t *testing.T) {
	f := newFixture()

	c, err := f.svc.OpenCheckout(context.Background(), "user-1", "cart-1")
	require.NoError(t, err)

	f.clock.Advance(899 * time.Second)

	require.NoError(t, newReaper(f, nil).SweepOnce(context.Background()))

	assert.Equal(t, domain.StatusWaiting, f.repo.get(c.CheckoutID).Status)
	assert.Zero(t, f.inventory.releaseCount())
}

func TestSweepSkipsRoundWhenLockBusy(t *testing.T) {
	f := newFixture()

	c, err := f.svc.OpenCheckout(context.Background(), "user-1", "cart-1")
	require.NoError(t, err)

	f.clock.Advance(901 * time.Second)

	// 锁被其他实例持有，本轮直接跳过且不报错
	require.NoError(t, newReaper(f, busyLock{}).SweepOnce(context.Background()))

	assert.Equal(t, domain.StatusWaiting, f.repo.get(c.CheckoutID).Status)
	assert.Zero(t, f.inventory.releaseCount())
}

func TestCancelExpiredLosesRaceToConcurrentPayment(t *testing.T) {
	f := newFixture()

	c, err := f.svc.OpenCheckout(context.Background(), "user-1", "cart-1")
	require.NoError(t, err)

	// 清扫器拿到过期快照之后，支付先一步完成
	stale, err := f.repo.FindByCheckoutID(context.Background(), c.CheckoutID)
	require.NoError(t, err)

	_, err = f.svc.FinalizeCheckout(context.Background(), "user-1", c.CheckoutID, "addr-1")
	require.NoError(t, err)

	won, err := f.svc.CancelExpired(context.Background(), stale)
	require.NoError(t, err)
	assert.False(t, won)

	// 输掉迁移的一方不触碰库存
	assert.Zero(t, f.inventory.releaseCount())
	assert.Equal(t, domain.StatusPaid, f.repo.get(c.CheckoutID).Status)
}

func TestSweepContinuesAfterSingleFailure(t *testing.T) {
	f := newFixture()

	first, err := f.svc.OpenCheckout(context.Background(), "user-1", "cart-1")
	require.NoError(t, err)

	f.carts.cart.UserID = "user-2"
	f.carts.cart.CartID = "cart-2"
	second, err := f.svc.OpenCheckout(context.Background(), "user-2", "cart-2")
	require.NoError(t, err)

	f.clock.Advance(901 * time.Second)
	f.inventory.releaseFn = func(checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
		return port.FailedBulkResult(checkoutID, items, "inventory service unavailable")
	}

	require.NoError(t, newReaper(f, nil).SweepOnce(context.Background()))

	// 释放失败不阻止取消落库
	assert.Equal(t, domain.StatusCancelled, f.repo.get(first.CheckoutID).Status)
	assert.Equal(t, domain.StatusCancelled, f.repo.get(second.CheckoutID).Status)
}

func TestReaperRunStopsOnContextCancel(t *testing.T) {
	f := newFixture()
	reaper := NewExpiryReaper(f.svc, f.repo, nil, errLockBusy, 10*time.Millisecond, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
