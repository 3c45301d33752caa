// internal/service/checkout/infrastructure/models.go
package infrastructure

import "time"

// CheckoutModel 结账会话的持久化模型。
// 条目和地址以 JSON 存储，会话整体读写，无逐条目查询需求。
type CheckoutModel struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement"`
	CheckoutID      string     `gorm:"type:varchar(32);uniqueIndex"`
	UserID          string     `gorm:"type:varchar(64);index"`
	SourceCartID    string     `gorm:"type:varchar(64)"`
	OrderID         string     `gorm:"type:varchar(32);index"`
	PaymentCode     string     `gorm:"type:varchar(32)"`
	Items           string     `gorm:"type:json"`
	TotalPrice      int64      `gorm:"not null"`
	Currency        string     `gorm:"type:varchar(8)"`
	Status          string     `gorm:"type:varchar(16);index:idx_status_expires,priority:1"`
	ShippingAddress string     `gorm:"type:json"`
	LockedAt        time.Time  `gorm:"not null"`
	ExpiresAt       time.Time  `gorm:"not null;index:idx_status_expires,priority:2"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
	PaidAt          *time.Time `gorm:""`
	CancelledAt     *time.Time `gorm:""`
	CancelReason    string     `gorm:"type:varchar(32)"`
}

// TableName 指定表名。
func (CheckoutModel) TableName() string {
	return "checkouts"
}
