package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// VendorRepository 商家仓储接口
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*model.Vendor, error)
	// SystemVendor 返回系统商家（钱包兑换券的挂靠对象）
	SystemVendor(ctx context.Context) (*model.Vendor, error)
}

type vendorRepository struct {
	db *gorm.DB
}

// NewVendorRepository 创建商家仓储
func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) GetByID(ctx context.Context, id string) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepository) SystemVendor(ctx context.Context) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).Where("is_system = ?", true).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}
