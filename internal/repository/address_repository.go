package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// AddressRepository 地址仓储接口（核心只用于归属校验）
type AddressRepository interface {
	GetByID(ctx context.Context, id string) (*model.Address, error)
}

type addressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建地址仓储
func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) GetByID(ctx context.Context, id string) (*model.Address, error) {
	var a model.Address
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
