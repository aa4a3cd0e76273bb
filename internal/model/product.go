package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品（库存与销量在下单/取消路径上必须严格对称变化）
type Product struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)"`
	VendorID   string          `gorm:"type:varchar(36);index:idx_product_vendor;not null"`
	Name       string          `gorm:"type:varchar(255);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock      int64           `gorm:"not null;default:0"`
	SalesCount int64           `gorm:"not null;default:0"`
	IsActive   bool            `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Product) TableName() string { return "products" }
