package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/repository"
)

func newWalletService(db *gorm.DB) WalletService {
	return NewWalletService(db,
		repository.NewUserRepository(db),
		repository.NewWalletRepository(db),
		repository.NewVendorRepository(db),
		WalletParams{},
	)
}

// 账本守恒: balance == lifetimeEarned - lifetimeSpent - Σ(已过期额)
func assertConservation(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	w := reloadWallet(t, db, userID)
	var expiredSum int64
	row := db.Model(&model.CoinTransaction{}).
		Where("wallet_id = ? AND type = ?", w.ID, model.CoinTxExpired).
		Select("COALESCE(SUM(amount), 0)")
	require.NoError(t, row.Scan(&expiredSum).Error)
	assert.Equal(t, w.LifetimeEarned-w.LifetimeSpent-expiredSum, w.Balance)
	assert.GreaterOrEqual(t, w.Balance, int64(0))
}

func TestAward_CreatesWalletAndLedgerEntry(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 50, model.CoinSourcePromotion, "welcome bonus", TxRefs{}))

	w := reloadWallet(t, db, u.ID)
	assert.EqualValues(t, 50, w.Balance)
	assert.EqualValues(t, 50, w.LifetimeEarned)

	var entry model.CoinTransaction
	require.NoError(t, db.Where("wallet_id = ?", w.ID).First(&entry).Error)
	assert.Equal(t, model.CoinTxEarned, entry.Type)
	assert.EqualValues(t, 50, entry.Amount)
	assert.EqualValues(t, 50, entry.BalanceAfter)
	require.NotNil(t, entry.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(90*24*time.Hour), *entry.ExpiresAt, time.Minute)

	// 镜像字段与账本同步
	assert.EqualValues(t, 50, reloadUser(t, db, u.ID).CoinBalance)
	assertConservation(t, db, u.ID)
}

func TestAward_UnknownUser(t *testing.T) {
	db := setupDB(t)
	svc := newWalletService(db)

	err := svc.Award(context.Background(), "ghost", 10, model.CoinSourceAdmin, "", TxRefs{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSpend_InsufficientBalanceLeavesStateUntouched(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 50, model.CoinSourcePromotion, "", TxRefs{}))
	err := svc.Spend(ctx, u.ID, 60, nil, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	w := reloadWallet(t, db, u.ID)
	assert.EqualValues(t, 50, w.Balance)
	var count int64
	db.Model(&model.CoinTransaction{}).Where("wallet_id = ? AND type = ?", w.ID, model.CoinTxSpent).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSpend_NoWallet(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)

	err := svc.Spend(context.Background(), u.ID, 10, nil, "")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestLedgerConservationAcrossSequence(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 100, model.CoinSourceOrderPurchase, "", TxRefs{}))
	assertConservation(t, db, u.ID)
	require.NoError(t, svc.Spend(ctx, u.ID, 30, nil, ""))
	assertConservation(t, db, u.ID)
	require.NoError(t, svc.Refund(ctx, u.ID, 30, "order-1", "cancelled"))
	assertConservation(t, db, u.ID)
	require.NoError(t, svc.Spend(ctx, u.ID, 100, nil, ""))
	assertConservation(t, db, u.ID)

	w := reloadWallet(t, db, u.ID)
	assert.EqualValues(t, 0, w.Balance)
	assert.EqualValues(t, 130, w.LifetimeEarned)
	assert.EqualValues(t, 130, w.LifetimeSpent)

	// 每笔流水的 BalanceAfter 均为入账后的余额快照
	var entries []model.CoinTransaction
	require.NoError(t, db.Where("wallet_id = ?", w.ID).Order("created_at").Find(&entries).Error)
	running := int64(0)
	for _, e := range entries {
		running += e.Amount
		assert.Equal(t, running, e.BalanceAfter)
	}
}

func TestRedeem_CreatesSingleUseCoupon(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	seedVendor(t, db, true)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 200, model.CoinSourcePromotion, "", TxRefs{}))

	coupon, err := svc.Redeem(ctx, u.ID, 100)
	require.NoError(t, err)

	// 兑换汇率 0.1: 100 金币 -> 10.00 定额券
	assert.Equal(t, model.DiscountFixed, coupon.DiscountType)
	assert.True(t, coupon.DiscountValue.Equal(decimal.NewFromInt(10)), "value = %s", coupon.DiscountValue)
	require.NotNil(t, coupon.UsageLimit)
	assert.EqualValues(t, 1, *coupon.UsageLimit)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), coupon.EndDate, time.Minute)

	assert.EqualValues(t, 100, reloadWallet(t, db, u.ID).Balance)
	assertConservation(t, db, u.ID)
}

func TestRedeem_NoSystemVendor(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	seedVendor(t, db, false)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 200, model.CoinSourcePromotion, "", TxRefs{}))
	_, err := svc.Redeem(ctx, u.ID, 100)
	assert.ErrorIs(t, err, ErrNoSystemVendor)
	assert.EqualValues(t, 200, reloadWallet(t, db, u.ID).Balance)
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	seedVendor(t, db, true)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 10, model.CoinSourcePromotion, "", TxRefs{}))
	_, err := svc.Redeem(ctx, u.ID, 100)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 回滚后不留下兑换券
	var coupons int64
	db.Model(&model.Coupon{}).Count(&coupons)
	assert.EqualValues(t, 0, coupons)
}

func TestExpireOldCoins_NeverDoubleDecrements(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	require.NoError(t, svc.Award(ctx, u.ID, 30, model.CoinSourcePromotion, "", TxRefs{}))
	require.NoError(t, svc.Award(ctx, u.ID, 20, model.CoinSourceReferral, "", TxRefs{}))

	// 手动把第一笔流水拨回过去
	w := reloadWallet(t, db, u.ID)
	var first model.CoinTransaction
	require.NoError(t, db.Where("wallet_id = ? AND amount = ?", w.ID, 30).First(&first).Error)
	require.NoError(t, db.Model(&model.CoinTransaction{}).
		Where("id = ?", first.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	n, err := svc.ExpireOldCoins(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 20, reloadWallet(t, db, u.ID).Balance)
	assert.EqualValues(t, 20, reloadUser(t, db, u.ID).CoinBalance)

	// 二次清扫不再扣减
	n, err = svc.ExpireOldCoins(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.EqualValues(t, 20, reloadWallet(t, db, u.ID).Balance)
	assertConservation(t, db, u.ID)

	var expired model.CoinTransaction
	require.NoError(t, db.Where("id = ?", first.ID).First(&expired).Error)
	assert.Equal(t, model.CoinTxExpired, expired.Type)
}

func TestExpireOldCoins_ClampsToBalanceAfterSpend(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	// 先花掉一部分已获得的金币，再让那笔 EARNED 过期
	require.NoError(t, svc.Award(ctx, u.ID, 30, model.CoinSourcePromotion, "", TxRefs{}))
	require.NoError(t, svc.Spend(ctx, u.ID, 20, nil, ""))
	require.NoError(t, db.Model(&model.CoinTransaction{}).
		Where("type = ?", model.CoinTxEarned).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	n, err := svc.ExpireOldCoins(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 只扣剩余 10，余额与镜像都不为负
	assert.EqualValues(t, 0, reloadWallet(t, db, u.ID).Balance)
	assert.EqualValues(t, 0, reloadUser(t, db, u.ID).CoinBalance)

	// 差额 20 落 clawback 任务待人工结算
	var task model.ReconciliationTask
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&task).Error)
	assert.Equal(t, model.ReconKindClawback, task.Kind)
	assert.EqualValues(t, 20, task.Coins)
	assert.Equal(t, model.ReconStatusPending, task.Status)

	// 全部花光的钱包: 过期只翻流水类型，余额保持 0
	u2 := seedUser(t, db)
	require.NoError(t, svc.Award(ctx, u2.ID, 30, model.CoinSourcePromotion, "", TxRefs{}))
	require.NoError(t, svc.Spend(ctx, u2.ID, 30, nil, ""))
	require.NoError(t, db.Model(&model.CoinTransaction{}).
		Where("type = ?", model.CoinTxEarned).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	n, err = svc.ExpireOldCoins(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 0, reloadWallet(t, db, u2.ID).Balance)
	assert.EqualValues(t, 0, reloadUser(t, db, u2.ID).CoinBalance)
}

func TestExpireOldCoins_BoundedBatch(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db)
	svc := newWalletService(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Award(ctx, u.ID, 10, model.CoinSourcePromotion, "", TxRefs{}))
	}
	require.NoError(t, db.Model(&model.CoinTransaction{}).
		Where("type = ?", model.CoinTxEarned).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	n, err := svc.ExpireOldCoins(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 30, reloadWallet(t, db, u.ID).Balance)
}
