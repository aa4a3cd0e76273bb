package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// CartRepository 购物车仓储接口
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*model.Cart, error)
	Items(ctx context.Context, cartID string) ([]*model.CartItem, error)
	AddItem(ctx context.Context, cartID, productID string, qty int64) error
	RemoveItem(ctx context.Context, cartID, productID string) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	cart = model.Cart{ID: uuid.New().String(), UserID: userID}
	// 幂等: 并发创建同一用户购物车不报错
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Items(ctx context.Context, cartID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Find(&items).Error
	return items, err
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, productID string, qty int64) error {
	item := &model.CartItem{ID: uuid.New().String(), CartID: cartID, ProductID: productID, Quantity: qty}
	// 同商品已在购物车时合并数量
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("quantity + ?", qty)}),
	}).Create(item).Error
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{}).Error
}

// ClearCart 清空购物车条目（在下单事务内调用）
func ClearCart(tx *gorm.DB, cartID string) error {
	return tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}
