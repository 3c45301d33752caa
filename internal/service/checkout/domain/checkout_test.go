// internal/service/checkout/domain/checkout_test.go
package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewCheckoutTotalCountsOnlyReservedItems(t *testing.T) {
	items := []CheckoutItem{
		{SubSku: "SKU-A", PriceSnapshot: 1000, Quantity: 2, Reserved: true},
		{SubSku: "SKU-B", PriceSnapshot: 500, Quantity: 1, Reserved: false, ReservationError: "insufficient stock"},
	}

	c := NewCheckout("user-1", "cart-1", "IDR", items, testNow, 15*time.Minute)

	assert.Equal(t, int64(2000), c.TotalPrice)
	assert.Equal(t, StatusWaiting, c.Status)
	assert.Equal(t, testNow, c.LockedAt)
	assert.Equal(t, testNow.Add(15*time.Minute), c.ExpiresAt)
}

func TestNewCheckoutAllItemsFailedTotalIsZero(t *testing.T) {
	items := []CheckoutItem{
		{SubSku: "SKU-A", PriceSnapshot: 1000, Quantity: 2, ReservationError: "inventory service unavailable"},
		{SubSku: "SKU-B", PriceSnapshot: 500, Quantity: 1, ReservationError: "inventory service unavailable"},
	}

	c := NewCheckout("user-1", "cart-1", "IDR", items, testNow, 15*time.Minute)

	assert.Zero(t, c.TotalPrice)
	assert.False(t, c.HasReservedItems())
	assert.Empty(t, c.ReservedItems())
}

func TestProjectCheckoutItemIsDeterministic(t *testing.T) {
	ci := CartItem{
		Sku:      "SKU-A",
		SubSku:   "SKU-A-RED",
		Title:    "Widget",
		Price:    1000,
		Quantity: 2,
	}

	first := ProjectCheckoutItem(ci, false, "insufficient stock", 1)
	second := ProjectCheckoutItem(ci, false, "insufficient stock", 1)

	assert.Equal(t, first, second)
	assert.False(t, first.Reserved)
	assert.Equal(t, "insufficient stock", first.ReservationError)
	assert.Equal(t, int64(1), first.AvailableStockSnapshot)
}

func TestProjectCheckoutItemReservedClearsError(t *testing.T) {
	item := ProjectCheckoutItem(CartItem{SubSku: "SKU-A"}, true, "stale message", 10)

	assert.True(t, item.Reserved)
	assert.Empty(t, item.ReservationError)
}

func TestMarkPaidFromWaiting(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", []CheckoutItem{
		{SubSku: "SKU-A", PriceSnapshot: 1000, Quantity: 1, Reserved: true},
	}, testNow, 15*time.Minute)

	addr := &AddressSnapshot{City: "Jakarta"}
	next, err := c.MarkPaid(testNow.Add(time.Minute), "ORD-20250601-AB12", "PAY-12345678", addr)
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, next.Status)
	assert.Equal(t, "ORD-20250601-AB12", next.OrderID)
	assert.Equal(t, "PAY-12345678", next.PaymentCode)
	assert.Equal(t, addr, next.ShippingAddress)
	require.NotNil(t, next.PaidAt)

	// 原对象不被修改
	assert.Equal(t, StatusWaiting, c.Status)
	assert.Empty(t, c.OrderID)
}

func TestMarkPaidRejectsTerminalStates(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", nil, testNow, 15*time.Minute)
	c.Status = StatusCancelled

	_, err := c.MarkPaid(testNow, "ORD-1", "PAY-1", nil)
	assert.ErrorIs(t, err, ErrCheckoutNotWaiting)

	c.Status = StatusPaid
	_, err = c.MarkPaid(testNow, "ORD-1", "PAY-1", nil)
	assert.ErrorIs(t, err, ErrCheckoutNotWaiting)
}

func TestMarkPaidRejectsExpiredSession(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", nil, testNow, 900*time.Second)

	_, err := c.MarkPaid(testNow.Add(901*time.Second), "ORD-1", "PAY-1", nil)
	assert.ErrorIs(t, err, ErrCheckoutExpired)

	// 正好在窗口边界上也算过期
	_, err = c.MarkPaid(testNow.Add(900*time.Second), "ORD-1", "PAY-1", nil)
	assert.ErrorIs(t, err, ErrCheckoutExpired)
}

func TestMarkCancelledAllowsExpiredSession(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", nil, testNow, 900*time.Second)

	at := testNow.Add(time.Hour)
	next, err := c.MarkCancelled(at, ReasonExpired)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, next.Status)
	assert.Equal(t, ReasonExpired, next.CancelReason)
	require.NotNil(t, next.CancelledAt)
	assert.Equal(t, at, *next.CancelledAt)
}

func TestMarkCancelledRejectsTerminalStates(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", nil, testNow, 15*time.Minute)
	c.Status = StatusPaid

	_, err := c.MarkCancelled(testNow, ReasonUserCancelled)
	assert.ErrorIs(t, err, ErrCheckoutNotWaiting)
}

func TestEffectiveStatus(t *testing.T) {
	c := NewCheckout("user-1", "cart-1", "IDR", nil, testNow, 900*time.Second)

	assert.Equal(t, StatusWaiting, c.EffectiveStatus(testNow.Add(899*time.Second)))
	assert.Equal(t, StatusCancelled, c.EffectiveStatus(testNow.Add(900*time.Second)))
	assert.Equal(t, StatusCancelled, c.EffectiveStatus(testNow.Add(time.Hour)))

	c.Status = StatusPaid
	assert.Equal(t, StatusPaid, c.EffectiveStatus(testNow.Add(time.Hour)))
}

func TestNewCheckoutID(t *testing.T) {
	id := NewCheckoutID()
	assert.Len(t, id, 12)
	assert.Equal(t, "chk-", id[:4])
	assert.NotEqual(t, id, NewCheckoutID())
}
