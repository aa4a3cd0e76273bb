package model

import "time"

// Cart 购物车（每用户一个）
type Cart struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Cart) TableName() string { return "carts" }

// CartItem 购物车条目
type CartItem struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CartID    string `gorm:"type:varchar(36);index:idx_cart_item_cart;uniqueIndex:ux_cart_item;not null"`
	ProductID string `gorm:"type:varchar(36);uniqueIndex:ux_cart_item;not null"`
	// ux_cart_item = (cart_id, product_id)，同商品合并数量
	Quantity  int64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CartItem) TableName() string { return "cart_items" }
