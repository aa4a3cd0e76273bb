package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// WalletRepository 钱包仓储接口（余额变更在 service 事务内完成）
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Wallet, error)
	History(ctx context.Context, walletID string, offset, limit int) ([]*model.CoinTransaction, error)
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepository) History(ctx context.Context, walletID string, offset, limit int) ([]*model.CoinTransaction, error) {
	var txs []*model.CoinTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
