package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// OrderRepository 订单仓储接口（写路径在 service 事务内完成，这里只做读取）
type OrderRepository interface {
	// GetByID 根据订单ID查询订单（含条目）
	GetByID(ctx context.Context, orderID string) (*model.Order, error)

	// GetForUser 查询属于指定用户的订单
	GetForUser(ctx context.Context, userID, orderID string) (*model.Order, error)

	// ListByUser 根据用户ID查询订单列表
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Order, error)

	// Count 统计订单数量
	Count(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetForUser(ctx context.Context, userID, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error
	return count, err
}
