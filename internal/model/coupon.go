package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 折扣类型
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// Coupon 商家优惠券
type Coupon struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)"`
	Code           string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	VendorID       string          `gorm:"type:varchar(36);index:idx_coupon_vendor;not null"`
	DiscountType   string          `gorm:"type:varchar(16);not null"` // PERCENTAGE / FIXED
	DiscountValue  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(10,2)"`
	MaxDiscount    decimal.Decimal `gorm:"type:decimal(10,2)"`
	// UsageLimit 为 nil 表示不限次
	UsageLimit *int64 `gorm:""`
	UsageCount int64  `gorm:"not null;default:0"`
	StartDate  time.Time
	EndDate    time.Time
	IsActive   bool `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Coupon) TableName() string { return "coupons" }
