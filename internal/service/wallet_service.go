package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/repository"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrInvalidCoinAmount   = errors.New("coin amount must be positive")
	ErrNoSystemVendor      = errors.New("no system vendor configured")
)

// WalletParams 钱包策略参数
type WalletParams struct {
	CoinTTL          time.Duration   // EARNED 流水的有效期
	RedeemCoinRate   decimal.Decimal // 兑换券时 1 金币折算的货币额
	RedeemCouponDays int             // 兑换券有效天数
}

// TxRefs 流水的业务关联
type TxRefs struct {
	OrderID   *string
	ProductID *string
	ReviewID  *string
}

// WalletService 金币钱包账本
// 每次余额变更与一条流水、用户镜像字段的刷新在同一事务内完成，
// 余额与流水日志不会出现分叉
type WalletService interface {
	Award(ctx context.Context, userID string, amount int64, source, description string, refs TxRefs) error
	Spend(ctx context.Context, userID string, amount int64, orderID *string, description string) error
	Refund(ctx context.Context, userID string, amount int64, orderID, description string) error
	// Redeem 将金币兑换为一张单次使用的定额券（挂靠系统商家）
	Redeem(ctx context.Context, userID string, amount int64) (*model.Coupon, error)
	// ExpireOldCoins 将到期的 EARNED 流水翻转为 EXPIRED 并扣减余额，
	// 按批处理；可安全重复/并发运行
	ExpireOldCoins(ctx context.Context, batchSize int) (int, error)
	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, offset, limit int) ([]*model.CoinTransaction, error)
}

type walletService struct {
	db      *gorm.DB
	users   repository.UserRepository
	wallets repository.WalletRepository
	vendors repository.VendorRepository
	params  WalletParams
}

// NewWalletService 创建钱包服务
func NewWalletService(db *gorm.DB, users repository.UserRepository, wallets repository.WalletRepository, vendors repository.VendorRepository, params WalletParams) WalletService {
	if params.CoinTTL <= 0 {
		params.CoinTTL = 90 * 24 * time.Hour
	}
	if params.RedeemCouponDays <= 0 {
		params.RedeemCouponDays = 30
	}
	if !params.RedeemCoinRate.IsPositive() {
		params.RedeemCoinRate = decimal.NewFromFloat(0.1)
	}
	return &walletService{db: db, users: users, wallets: wallets, vendors: vendors, params: params}
}

// forUpdate 在支持的方言上对行加锁；sqlite 事务本身串行
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *walletService) Award(ctx context.Context, userID string, amount int64, source, description string, refs TxRefs) error {
	if amount <= 0 {
		return ErrInvalidCoinAmount
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.awardTx(tx, userID, amount, source, description, refs)
	})
}

func (s *walletService) awardTx(tx *gorm.DB, userID string, amount int64, source, description string, refs TxRefs) error {
	wallet, err := lockOrCreateWallet(tx, userID)
	if err != nil {
		return err
	}

	wallet.Balance += amount
	wallet.LifetimeEarned += amount
	if err := tx.Model(&model.Wallet{}).Where("id = ?", wallet.ID).Updates(map[string]any{
		"balance":         wallet.Balance,
		"lifetime_earned": wallet.LifetimeEarned,
	}).Error; err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.params.CoinTTL)
	entry := &model.CoinTransaction{
		ID:           uuid.New().String(),
		WalletID:     wallet.ID,
		Amount:       amount,
		Type:         model.CoinTxEarned,
		Source:       source,
		BalanceAfter: wallet.Balance,
		Description:  description,
		ExpiresAt:    &expiresAt,
		OrderID:      refs.OrderID,
		ProductID:    refs.ProductID,
		ReviewID:     refs.ReviewID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	return syncMirror(tx, userID, wallet.Balance)
}

func (s *walletService) Spend(ctx context.Context, userID string, amount int64, orderID *string, description string) error {
	if amount <= 0 {
		return ErrInvalidCoinAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.spendTx(tx, userID, amount, orderID, model.CoinSourceOrderPurchase, description)
	})
}

func (s *walletService) spendTx(tx *gorm.DB, userID string, amount int64, orderID *string, source, description string) error {
	var wallet model.Wallet
	err := forUpdate(tx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrWalletNotFound
	}
	if err != nil {
		return err
	}
	if wallet.Balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, wallet.Balance, amount)
	}

	wallet.Balance -= amount
	wallet.LifetimeSpent += amount
	if err := tx.Model(&model.Wallet{}).Where("id = ?", wallet.ID).Updates(map[string]any{
		"balance":        wallet.Balance,
		"lifetime_spent": wallet.LifetimeSpent,
	}).Error; err != nil {
		return err
	}

	entry := &model.CoinTransaction{
		ID:           uuid.New().String(),
		WalletID:     wallet.ID,
		Amount:       -amount,
		Type:         model.CoinTxSpent,
		Source:       source,
		BalanceAfter: wallet.Balance,
		Description:  description,
		OrderID:      orderID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	return syncMirror(tx, userID, wallet.Balance)
}

func (s *walletService) Refund(ctx context.Context, userID string, amount int64, orderID, description string) error {
	refs := TxRefs{}
	if orderID != "" {
		refs.OrderID = &orderID
	}
	return s.Award(ctx, userID, amount, model.CoinSourceRefund, description, refs)
}

func (s *walletService) Redeem(ctx context.Context, userID string, amount int64) (*model.Coupon, error) {
	if amount <= 0 {
		return nil, ErrInvalidCoinAmount
	}
	vendor, err := s.vendors.SystemVendor(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSystemVendor
	}
	if err != nil {
		return nil, err
	}

	var coupon *model.Coupon
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 兑换汇率与结算抵扣汇率不同（0.1 vs 1.0），二者均为有效业务规则
		value := decimal.NewFromInt(amount).Mul(s.params.RedeemCoinRate).Round(2)
		now := time.Now()
		limit := int64(1)
		coupon = &model.Coupon{
			ID:            uuid.New().String(),
			Code:          redemptionCode(),
			VendorID:      vendor.ID,
			DiscountType:  model.DiscountFixed,
			DiscountValue: value,
			UsageLimit:    &limit,
			StartDate:     now,
			EndDate:       now.AddDate(0, 0, s.params.RedeemCouponDays),
			IsActive:      true,
		}
		if err := tx.Create(coupon).Error; err != nil {
			return err
		}

		desc := fmt.Sprintf("redeemed %d coins for coupon %s", amount, coupon.Code)
		return s.spendTx(tx, userID, amount, nil, model.CoinSourceRedemption, desc)
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *walletService) ExpireOldCoins(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	expired := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch []model.CoinTransaction
		q := tx.Where("type = ? AND expires_at <= ?", model.CoinTxEarned, time.Now()).
			Order("expires_at").
			Limit(batchSize)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}

		for _, entry := range batch {
			// 条件更新守卫: 只有仍处于 EARNED 的流水才会被翻转，
			// 重复扫描不会二次扣减
			res := tx.Model(&model.CoinTransaction{}).
				Where("id = ? AND type = ?", entry.ID, model.CoinTxEarned).
				Update("type", model.CoinTxExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}

			var wallet model.Wallet
			if err := forUpdate(tx).Where("id = ?", entry.WalletID).First(&wallet).Error; err != nil {
				return err
			}
			// 已花掉的部分不可再扣，余额永不为负；
			// 差额落 clawback 任务供人工结算
			deduct := entry.Amount
			if deduct > wallet.Balance {
				shortfall := deduct - wallet.Balance
				deduct = wallet.Balance
				task := &model.ReconciliationTask{
					ID:        uuid.New().String(),
					Kind:      model.ReconKindClawback,
					UserID:    wallet.UserID,
					Coins:     shortfall,
					Status:    model.ReconStatusPending,
					LastError: fmt.Sprintf("expiry shortfall on transaction %s", entry.ID),
				}
				if entry.OrderID != nil {
					task.OrderID = *entry.OrderID
				}
				if err := tx.Create(task).Error; err != nil {
					return err
				}
			}
			wallet.Balance -= deduct
			if err := tx.Model(&model.Wallet{}).Where("id = ?", wallet.ID).
				Update("balance", wallet.Balance).Error; err != nil {
				return err
			}
			if err := syncMirror(tx, wallet.UserID, wallet.Balance); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func (s *walletService) Balance(ctx context.Context, userID string) (int64, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *walletService) History(ctx context.Context, userID string, offset, limit int) ([]*model.CoinTransaction, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.wallets.History(ctx, wallet.ID, offset, limit)
}

// lockOrCreateWallet 锁定用户钱包行，首次使用时创建零余额钱包
func lockOrCreateWallet(tx *gorm.DB, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := forUpdate(tx).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	wallet = model.Wallet{ID: uuid.New().String(), UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet).Error; err != nil {
		return nil, err
	}
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// syncMirror 刷新用户表上的余额镜像字段（与账本写同事务）
func syncMirror(tx *gorm.DB, userID string, balance int64) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).
		Update("coin_balance", balance).Error
}

func redemptionCode() string {
	return "RDM-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}
