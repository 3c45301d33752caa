// internal/pkg/constants/constants.go
package constants

// 下游服务在 Nacos 中注册的服务名
const (
	InventoryService = "inventory-service"
	MemberService    = "member-service"
	CartService      = "cart-service"
)

// 库存服务的批量操作路径，按 checkoutId 维度加锁/扣减/释放
const (
	InventoryBulkLockPath    = "/api/inventory/bulk_lock"
	InventoryBulkAcquirePath = "/api/inventory/bulk_acquire"
	InventoryBulkReleasePath = "/api/inventory/bulk_release"
	InventoryFindBySubSku    = "/api/inventory/by_sub_sku"
)

const (
	MemberAddressPath = "/api/members/address"
	CartGetPath       = "/api/carts"
	CartBulkRemove    = "/api/carts/bulk_remove"
)

// Kafka 主题
const (
	CheckoutEventsTopic = "checkout-events-topic"
)
