// internal/service/checkout/domain/cart.go
package domain

// CartItem 购物车中的一个条目，是生成结账条目的原料。
type CartItem struct {
	Sku        string            `json:"sku"`
	SubSku     string            `json:"subSku"`
	Title      string            `json:"title"`
	Price      int64             `json:"price"` // 最小货币单位
	Quantity   int32             `json:"quantity"`
	ImageURL   string            `json:"imageUrl"`
	Attributes map[string]string `json:"attributes"`
}

// Cart 购物车快照，由购物车服务提供。
type Cart struct {
	CartID   string     `json:"cartId"`
	UserID   string     `json:"userId"`
	Currency string     `json:"currency"`
	Items    []CartItem `json:"items"`
}

// AddressSnapshot 收货地址快照，在支付完成时固化到结账会话上。
type AddressSnapshot struct {
	Label       string  `json:"label"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	Province    string  `json:"province"`
	District    string  `json:"district"`
	SubDistrict string  `json:"subDistrict"`
	Country     string  `json:"country"`
	PostalCode  string  `json:"postalCode"`
	Details     string  `json:"details"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}
