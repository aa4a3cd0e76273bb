package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单模型
// 金额恒等式: Total = Subtotal - Discount + ShippingFee + GiftWrapFee + Tax
type Order struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	OrderNumber string `gorm:"type:varchar(32);uniqueIndex;not null"`
	UserID      string `gorm:"type:varchar(36);index:idx_order_user_created;not null"`
	AddressID   string `gorm:"type:varchar(36);not null"`

	PaymentMethod string          `gorm:"type:varchar(32)"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ShippingFee   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	GiftWrapFee   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CoinsUsed     int64           `gorm:"not null;default:0"`
	CoinsEarned   int64           `gorm:"not null;default:0"`

	OrderStatus    string  `gorm:"type:varchar(16);index;not null;default:'PENDING'"`
	PaymentStatus  string  `gorm:"type:varchar(16);not null;default:'PENDING'"`
	CouponID       *string `gorm:"type:varchar(36)"`
	TrackingNumber string  `gorm:"type:varchar(64)"`

	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"index:idx_order_user_created;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderItem 订单条目（Price 为下单时的单价快照）
type OrderItem struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `gorm:"type:varchar(36);index:idx_order_item_order;not null"`
	ProductID string          `gorm:"type:varchar(36);index;not null"`
	Quantity  int64           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

func (OrderItem) TableName() string { return "order_items" }

// 订单状态常量
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// 支付状态常量
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)
