// internal/service/checkout/application/mocks_test.go
package application

import (
	"context"
	"sync"
	"time"

	"kasir/internal/service/checkout/domain"
	"kasir/internal/service/checkout/port"
)

// mockRepository 内存仓储。UpdateIfStatus 在互斥锁内做条件更新，
// 行为与数据库的条件 UPDATE 一致，可用于并发竞争测试。
type mockRepository struct {
	mu        sync.Mutex
	checkouts map[string]*domain.Checkout
	createErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{checkouts: make(map[string]*domain.Checkout)}
}

func (m *mockRepository) Create(ctx context.Context, checkout *domain.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *checkout
	m.checkouts[checkout.CheckoutID] = &cp
	return nil
}

func (m *mockRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checkouts[checkoutID]
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepository) FindWaitingByUser(ctx context.Context, userID string) (*domain.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.checkouts {
		if c.UserID == userID && c.Status == domain.StatusWaiting {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Checkout
	for _, c := range m.checkouts {
		if len(out) >= limit {
			break
		}
		if c.Status == domain.StatusWaiting && c.ExpiresAt.Before(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepository) List(ctx context.Context, query domain.ListQuery) (*domain.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := &domain.ListResult{}
	for _, c := range m.checkouts {
		if c.UserID != query.UserID {
			continue
		}
		if query.Status != "" && c.Status != query.Status {
			continue
		}
		cp := *c
		result.Items = append(result.Items, &cp)
	}
	return result, nil
}

func (m *mockRepository) UpdateIfStatus(ctx context.Context, next *domain.Checkout, from domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.checkouts[next.CheckoutID]
	if !ok || current.Status != from {
		return domain.ErrCheckoutNotWaiting
	}
	cp := *next
	m.checkouts[next.CheckoutID] = &cp
	return nil
}

func (m *mockRepository) get(checkoutID string) *domain.Checkout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkouts[checkoutID]
}

// stockCall 记录一次批量库存调用。
type stockCall struct {
	checkoutID string
	items      []port.StockOperationItem
}

// mockInventory 库存端口的脚本化替身，记录每一次调用。
type mockInventory struct {
	mu           sync.Mutex
	lockFn       func(checkoutID string, items []port.StockOperationItem) *port.BulkStockResult
	acquireFn    func(checkoutID string, items []port.StockOperationItem) *port.BulkStockResult
	releaseFn    func(checkoutID string, items []port.StockOperationItem) *port.BulkStockResult
	lockCalls    []stockCall
	acquireCalls []stockCall
	releaseCalls []stockCall
	stockBySku   map[string]int64
}

func newMockInventory() *mockInventory {
	return &mockInventory{}
}

func allSuccess(checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
	results := make([]port.StockOperationResult, 0, len(items))
	for _, it := range items {
		results = append(results, port.StockOperationResult{
			SubSku:   it.SubSku,
			Quantity: it.Quantity,
			Success:  true,
		})
	}
	return &port.BulkStockResult{CheckoutID: checkoutID, AllSuccess: true, Results: results}
}

func (m *mockInventory) BulkLockStock(ctx context.Context, checkoutID string, items []port.StockOperationItem, ttlSeconds int64) *port.BulkStockResult {
	m.mu.Lock()
	m.lockCalls = append(m.lockCalls, stockCall{checkoutID: checkoutID, items: items})
	fn := m.lockFn
	m.mu.Unlock()
	if fn != nil {
		return fn(checkoutID, items)
	}
	return allSuccess(checkoutID, items)
}

func (m *mockInventory) BulkAcquireStock(ctx context.Context, checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
	m.mu.Lock()
	m.acquireCalls = append(m.acquireCalls, stockCall{checkoutID: checkoutID, items: items})
	fn := m.acquireFn
	m.mu.Unlock()
	if fn != nil {
		return fn(checkoutID, items)
	}
	return allSuccess(checkoutID, items)
}

func (m *mockInventory) BulkReleaseStock(ctx context.Context, checkoutID string, items []port.StockOperationItem) *port.BulkStockResult {
	m.mu.Lock()
	m.releaseCalls = append(m.releaseCalls, stockCall{checkoutID: checkoutID, items: items})
	fn := m.releaseFn
	m.mu.Unlock()
	if fn != nil {
		return fn(checkoutID, items)
	}
	return allSuccess(checkoutID, items)
}

func (m *mockInventory) GetAvailableStock(ctx context.Context, subSku string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stockBySku[subSku]
}

func (m *mockInventory) releaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.releaseCalls)
}

func (m *mockInventory) acquireCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acquireCalls)
}

// mockCartService 购物车端口替身。
type mockCartService struct {
	mu           sync.Mutex
	cart         *domain.Cart
	getErr       error
	removedSkus  []string
	removeCalled int
}

func (m *mockCartService) GetCart(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.cart, nil
}

func (m *mockCartService) RemoveItems(ctx context.Context, userID, cartID string, subSkus []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalled++
	m.removedSkus = append(m.removedSkus, subSkus...)
	return nil
}

// mockAddressResolver 会员地址端口替身。
type mockAddressResolver struct {
	snapshot *domain.AddressSnapshot
	err      error
}

func (m *mockAddressResolver) ResolveAddress(ctx context.Context, userID, addressID string) (*domain.AddressSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.snapshot == nil {
		return &domain.AddressSnapshot{City: "Jakarta"}, nil
	}
	return m.snapshot, nil
}

// mockCache 缓存端口替身。
type mockCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Checkout
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*domain.Checkout)}
}

func (m *mockCache) Put(ctx context.Context, checkout *domain.Checkout, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *checkout
	m.entries[checkout.CheckoutID] = &cp
	return nil
}

func (m *mockCache) Get(ctx context.Context, checkoutID string) (*domain.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[checkoutID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCache) Remove(ctx context.Context, checkoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, checkoutID)
	return nil
}

// mockEventProducer 事件端口替身。
type mockEventProducer struct {
	mu     sync.Mutex
	events []domain.CheckoutEvent
}

func (m *mockEventProducer) Publish(ctx context.Context, event domain.CheckoutEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventProducer) byType(eventType string) []domain.CheckoutEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CheckoutEvent
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
