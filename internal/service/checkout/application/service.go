// internal/service/checkout/application/service.go
package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kasir/internal/pkg/logger"
	"kasir/internal/service/checkout/domain"
	"kasir/internal/service/checkout/port"
)

var (
	lockFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_lock_failures_total",
		Help: "Number of checkout items that failed to lock stock.",
	})
	casRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_state_races_total",
		Help: "Number of state transitions lost to a concurrent writer.",
	})
	releaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_release_failures_total",
		Help: "Number of checkout items whose stock release failed.",
	})
)

// CheckoutService 结账会话应用服务。
// 编排购物车、库存、会员地址等远端调用，并驱动会话状态机。
type CheckoutService struct {
	repo      domain.CheckoutRepository
	cache     port.CheckoutCache
	inventory port.InventoryService
	addresses port.AddressResolver
	carts     port.CartService
	events    port.CheckoutEventProducer
	tracer    trace.Tracer

	window            time.Duration // 库存保留窗口
	orderIDPrefix     string
	paymentCodePrefix string
	now               func() time.Time
}

// NewCheckoutService 组装应用服务。
func NewCheckoutService(
	repo domain.CheckoutRepository,
	cache port.CheckoutCache,
	inventory port.InventoryService,
	addresses port.AddressResolver,
	carts port.CartService,
	events port.CheckoutEventProducer,
	tracer trace.Tracer,
	window time.Duration,
	orderIDPrefix, paymentCodePrefix string,
) *CheckoutService {
	return &CheckoutService{
		repo:              repo,
		cache:             cache,
		inventory:         inventory,
		addresses:         addresses,
		carts:             carts,
		events:            events,
		tracer:            tracer,
		window:            window,
		orderIDPrefix:     orderIDPrefix,
		paymentCodePrefix: paymentCodePrefix,
		now:               time.Now,
	}
}

// OpenCheckout 打开一个结账会话: 读取购物车，批量锁定库存，
// 按逐条结果生成条目快照并落库。部分条目锁定失败不阻止会话创建。
// 如果用户已有未过期的 WAITING 会话，直接复用它。
func (s *CheckoutService) OpenCheckout(ctx context.Context, userID, cartID string) (*domain.Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.open")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("cart.id", cartID))

	now := s.now()

	// 已有未过期的 WAITING 会话时直接复用，不重复锁定库存；
	// 过期的旧会话先走取消流程归还库存，再开新会话
	if existing, err := s.repo.FindWaitingByUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "find waiting checkout")
	} else if existing != nil {
		if !existing.IsExpired(now) {
			logger.Ctx(ctx).Info().
				Str("checkout_id", existing.CheckoutID).
				Str("user_id", userID).
				Msg("reusing active checkout")
			return existing, nil
		}
		if _, err := s.CancelExpired(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "cancel expired checkout")
		}
	}

	cart, err := s.carts.GetCart(ctx, userID, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	checkoutID := domain.NewCheckoutID()

	lockItems := make([]port.StockOperationItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		lockItems = append(lockItems, port.StockOperationItem{SubSku: ci.SubSku, Quantity: ci.Quantity})
	}
	lockResult := s.inventory.BulkLockStock(ctx, checkoutID, lockItems, int64(s.window.Seconds()))

	items := make([]domain.CheckoutItem, 0, len(cart.Items))
	reservedSubSkus := make([]string, 0, len(cart.Items))
	for _, ci := range cart.Items {
		res, ok := lockResult.ResultFor(ci.SubSku)
		reserved := ok && res.Success
		availableStock := res.CurrentStock
		reason := res.Message
		if !ok {
			// 远端响应中缺失的条目按失败处理
			reason = "no lock result returned"
		}
		// 未锁定的条目必须带上失败原因
		if !reserved && reason == "" {
			reason = "stock lock failed"
		}
		if !reserved {
			lockFailures.Inc()
			// 锁定失败的条目重新查一次可售库存，给前端展示用
			availableStock = s.inventory.GetAvailableStock(ctx, ci.SubSku)
		}
		items = append(items, domain.ProjectCheckoutItem(ci, reserved, reason, availableStock))
		if reserved {
			reservedSubSkus = append(reservedSubSkus, ci.SubSku)
		}
	}

	checkout := domain.NewCheckout(userID, cart.CartID, cart.Currency, items, now, s.window)
	checkout.CheckoutID = checkoutID

	if err := s.repo.Create(ctx, checkout); err != nil {
		// 落库失败时归还刚拿到的锁，避免库存被悬挂占用
		if len(reservedSubSkus) > 0 {
			s.releaseReserved(ctx, checkout)
		}
		return nil, errors.Wrap(err, "persist checkout")
	}

	s.putCache(ctx, checkout)
	s.publish(ctx, domain.CheckoutEvent{
		Type:       domain.EventCheckoutOpened,
		CheckoutID: checkout.CheckoutID,
		UserID:     userID,
		TotalPrice: checkout.TotalPrice,
		At:         now,
	})

	// 锁定成功的条目从购物车移除，失败不影响会话
	if len(reservedSubSkus) > 0 {
		if err := s.carts.RemoveItems(ctx, userID, cart.CartID, reservedSubSkus); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("checkout_id", checkout.CheckoutID).
				Msg("failed to remove reserved items from cart")
		}
	}

	logger.Ctx(ctx).Info().
		Str("checkout_id", checkout.CheckoutID).
		Str("user_id", userID).
		Int("failure_count", lockResult.FailureCount).
		Int64("total_price", checkout.TotalPrice).
		Msg("checkout opened")
	return checkout, nil
}

// FinalizeCheckout 完成支付: 先扣减已锁定的库存，再以条件更新迁移到 PAID。
// 扣减失败时会话保持 WAITING，调用方可以重试或取消。
func (s *CheckoutService) FinalizeCheckout(ctx context.Context, userID, checkoutID, addressID string) (*domain.Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.finalize")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.id", checkoutID))

	checkout, err := s.loadOwned(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if checkout.Status != domain.StatusWaiting {
		return nil, domain.ErrCheckoutNotWaiting
	}
	if checkout.IsExpired(now) {
		return nil, domain.ErrCheckoutExpired
	}

	addr, err := s.addresses.ResolveAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	reserved := checkout.ReservedItems()
	if len(reserved) > 0 {
		acquireItems := toStockItems(reserved)
		result := s.inventory.BulkAcquireStock(ctx, checkout.CheckoutID, acquireItems)
		if !result.AllSuccess {
			logger.Ctx(ctx).Warn().
				Str("checkout_id", checkout.CheckoutID).
				Int("failure_count", result.FailureCount).
				Msg("bulk acquire failed, checkout stays waiting")
			return nil, domain.ErrAcquireFailed
		}
	}

	next, err := checkout.MarkPaid(now, s.generateOrderID(now), s.generatePaymentCode(), addr)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateIfStatus(ctx, next, domain.StatusWaiting); err != nil {
		if errors.Is(err, domain.ErrCheckoutNotWaiting) {
			// 扣减已经发生但迁移输给了并发的取消，库存需要人工对账
			casRaces.Inc()
			logger.Ctx(ctx).Error().
				Str("checkout_id", checkout.CheckoutID).
				Msg("finalize lost state race after stock acquire")
		}
		return nil, err
	}

	s.putCache(ctx, next)
	s.publish(ctx, domain.CheckoutEvent{
		Type:       domain.EventCheckoutPaid,
		CheckoutID: next.CheckoutID,
		UserID:     userID,
		OrderID:    next.OrderID,
		TotalPrice: next.TotalPrice,
		At:         now,
	})

	logger.Ctx(ctx).Info().
		Str("checkout_id", next.CheckoutID).
		Str("order_id", next.OrderID).
		Msg("checkout finalized")
	return next, nil
}

// CancelCheckout 用户主动取消: 先以条件更新迁移到 CANCELLED，
// 赢得迁移的一方才去释放库存，保证释放最多发生一次。
func (s *CheckoutService) CancelCheckout(ctx context.Context, userID, checkoutID string) (*domain.Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.id", checkoutID))

	checkout, err := s.loadOwned(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}

	// 重复取消是幂等的: 直接返回已取消的会话，不再触碰远端
	if checkout.Status == domain.StatusCancelled {
		return checkout, nil
	}

	now := s.now()
	next, err := checkout.MarkCancelled(now, domain.ReasonUserCancelled)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateIfStatus(ctx, next, domain.StatusWaiting); err != nil {
		return nil, err
	}

	s.releaseReserved(ctx, next)
	s.putCache(ctx, next)
	s.publish(ctx, domain.CheckoutEvent{
		Type:       domain.EventCheckoutCancelled,
		CheckoutID: next.CheckoutID,
		UserID:     userID,
		Reason:     domain.ReasonUserCancelled,
		TotalPrice: next.TotalPrice,
		At:         now,
	})

	logger.Ctx(ctx).Info().
		Str("checkout_id", next.CheckoutID).
		Msg("checkout cancelled by user")
	return next, nil
}

// CancelExpired 由清理器调用，对过期的 WAITING 会话执行取消。
// 返回值表示本实例是否赢得了状态迁移。
func (s *CheckoutService) CancelExpired(ctx context.Context, checkout *domain.Checkout) (bool, error) {
	now := s.now()
	next, err := checkout.MarkCancelled(now, domain.ReasonExpired)
	if err != nil {
		return false, nil
	}
	if err := s.repo.UpdateIfStatus(ctx, next, domain.StatusWaiting); err != nil {
		if errors.Is(err, domain.ErrCheckoutNotWaiting) {
			// 并发的支付或取消先一步完成，无需释放
			casRaces.Inc()
			return false, nil
		}
		return false, err
	}

	s.releaseReserved(ctx, next)
	s.putCache(ctx, next)
	s.publish(ctx, domain.CheckoutEvent{
		Type:       domain.EventCheckoutCancelled,
		CheckoutID: next.CheckoutID,
		UserID:     next.UserID,
		Reason:     domain.ReasonExpired,
		TotalPrice: next.TotalPrice,
		At:         now,
	})

	logger.Ctx(ctx).Info().
		Str("checkout_id", next.CheckoutID).
		Time("expired_at", next.ExpiresAt).
		Msg("expired checkout cancelled")
	return true, nil
}

// GetCheckout 查询单个会话，优先走缓存。
func (s *CheckoutService) GetCheckout(ctx context.Context, userID, checkoutID string) (*domain.Checkout, error) {
	if cached, err := s.cache.Get(ctx, checkoutID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("checkout_id", checkoutID).Msg("checkout cache read failed")
	} else if cached != nil {
		if cached.UserID != userID {
			return nil, domain.ErrNotOwner
		}
		return cached, nil
	}
	return s.loadOwned(ctx, userID, checkoutID)
}

// GetActiveCheckoutByUser 查询用户当前未过期的 WAITING 会话，不存在时返回 (nil, nil)。
func (s *CheckoutService) GetActiveCheckoutByUser(ctx context.Context, userID string) (*domain.Checkout, error) {
	checkout, err := s.repo.FindWaitingByUser(ctx, userID)
	if err != nil || checkout == nil {
		return nil, err
	}
	if checkout.IsExpired(s.now()) {
		return nil, nil
	}
	return checkout, nil
}

// ListCheckouts 游标分页查询用户的结账会话。
func (s *CheckoutService) ListCheckouts(ctx context.Context, query domain.ListQuery) (*domain.ListResult, error) {
	return s.repo.List(ctx, query)
}

// Now 返回应用服务使用的时钟读数。
func (s *CheckoutService) Now() time.Time {
	return s.now()
}

// WithClock 替换时钟，测试专用。
func (s *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	s.now = now
	return s
}

func (s *CheckoutService) loadOwned(ctx context.Context, userID, checkoutID string) (*domain.Checkout, error) {
	checkout, err := s.repo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return checkout, nil
}

// releaseReserved 尽力归还已锁定的库存，失败只记录不回滚取消。
func (s *CheckoutService) releaseReserved(ctx context.Context, checkout *domain.Checkout) {
	reserved := checkout.ReservedItems()
	if len(reserved) == 0 {
		return
	}
	result := s.inventory.BulkReleaseStock(ctx, checkout.CheckoutID, toStockItems(reserved))
	if !result.AllSuccess {
		releaseFailures.Inc()
		logger.Ctx(ctx).Error().
			Str("checkout_id", checkout.CheckoutID).
			Int("failure_count", result.FailureCount).
			Msg("bulk release failed, stock lock left to remote ttl")
	}
}

func (s *CheckoutService) putCache(ctx context.Context, checkout *domain.Checkout) {
	ttl := time.Until(checkout.ExpiresAt)
	if ttl <= 0 || checkout.Status != domain.StatusWaiting {
		// 终态会话短暂可读即可
		ttl = time.Minute
	}
	if err := s.cache.Put(ctx, checkout, ttl); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("checkout_id", checkout.CheckoutID).
			Msg("checkout cache write failed")
	}
}

func (s *CheckoutService) publish(ctx context.Context, event domain.CheckoutEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("checkout_id", event.CheckoutID).
			Str("event_type", event.Type).
			Msg("failed to publish checkout event")
	}
}

func (s *CheckoutService) generateOrderID(now time.Time) string {
	return s.orderIDPrefix + "-" + now.Format("20060102") + "-" + randomToken(4)
}

func (s *CheckoutService) generatePaymentCode() string {
	return s.paymentCodePrefix + "-" + randomToken(8)
}

func randomToken(n int) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:n]
}

func toStockItems(items []domain.CheckoutItem) []port.StockOperationItem {
	out := make([]port.StockOperationItem, 0, len(items))
	for _, it := range items {
		out = append(out, port.StockOperationItem{SubSku: it.SubSku, Quantity: it.Quantity})
	}
	return out
}
