package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// CouponRepository 优惠券仓储接口
// 注意: 用券计数的递增发生在下单事务内（service 层条件更新），不在这里
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetByID(ctx context.Context, id string) (*model.Coupon, error)
	ListActiveForVendor(ctx context.Context, vendorID string, now time.Time) ([]*model.Coupon, error)
	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) GetByID(ctx context.Context, id string) (*model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) ListActiveForVendor(ctx context.Context, vendorID string, now time.Time) ([]*model.Coupon, error) {
	var res []*model.Coupon
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND is_active = ?", vendorID, true).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("usage_limit IS NULL OR usage_count < usage_limit").
		Order("end_date ASC").
		Find(&res).Error
	return res, err
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *couponRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("code = ?", code).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
