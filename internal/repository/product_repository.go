package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// ProductRepository 商品仓储接口
// 库存增减必须走条件更新，在下单/取消事务内由 service 调用
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Product, error) {
	var res []*model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// DecrementStock 条件扣减库存并同步销量: stock -= qty, sales_count += qty
// 仅当 stock >= qty 且商品在售时生效；未命中返回 false，调用方应整体回滚
func DecrementStock(tx *gorm.DB, productID string, qty int64) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ? AND is_active = ?", productID, qty, true).
		Updates(map[string]any{
			"stock":       gorm.Expr("stock - ?", qty),
			"sales_count": gorm.Expr("sales_count + ?", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock 取消订单时恢复库存: stock += qty, sales_count -= qty
// 与 DecrementStock 严格对称
func RestoreStock(tx *gorm.DB, productID string, qty int64) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":       gorm.Expr("stock + ?", qty),
			"sales_count": gorm.Expr("sales_count - ?", qty),
		}).Error
}
