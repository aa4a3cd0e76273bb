package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/repository"
)

func newCouponService(db *gorm.DB, cache *redis.Client) CouponService {
	return NewCouponService(repository.NewCouponRepository(db), cache, time.Minute)
}

func limitOf(n int64) *int64 { return &n }

func TestValidate_RejectionOrder(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)
	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	_, err := svc.Validate(ctx, "NOPE", amount)
	assert.ErrorIs(t, err, ErrCouponNotFound)

	seedCoupon(t, db, &model.Coupon{Code: "OFF10", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10), IsActive: false})
	_, err = svc.Validate(ctx, "OFF10", amount)
	assert.ErrorIs(t, err, ErrCouponInactive)

	seedCoupon(t, db, &model.Coupon{Code: "SOON", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10), IsActive: true,
		StartDate: time.Now().Add(time.Hour), EndDate: time.Now().Add(48 * time.Hour)})
	_, err = svc.Validate(ctx, "SOON", amount)
	assert.ErrorIs(t, err, ErrCouponNotYetValid)

	seedCoupon(t, db, &model.Coupon{Code: "GONE", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10), IsActive: true,
		StartDate: time.Now().Add(-48 * time.Hour), EndDate: time.Now().Add(-time.Hour)})
	_, err = svc.Validate(ctx, "GONE", amount)
	assert.ErrorIs(t, err, ErrCouponExpired)

	seedCoupon(t, db, &model.Coupon{Code: "MAXED", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10), IsActive: true,
		UsageLimit: limitOf(1), UsageCount: 1})
	_, err = svc.Validate(ctx, "MAXED", amount)
	assert.ErrorIs(t, err, ErrCouponUsageLimitHit)

	seedCoupon(t, db, &model.Coupon{Code: "BIG", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10), IsActive: true,
		MinOrderAmount: decimal.NewFromInt(500)})
	_, err = svc.Validate(ctx, "BIG", amount)
	assert.ErrorIs(t, err, ErrCouponBelowMinimum)
}

func TestValidate_PercentageWithMaxDiscount(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)
	ctx := context.Background()

	seedCoupon(t, db, &model.Coupon{Code: "PCT20", VendorID: v.ID,
		DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(20),
		MaxDiscount: decimal.NewFromInt(30), IsActive: true})

	// 20% of 100 = 20, 低于上限
	res, err := svc.Validate(ctx, "PCT20", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, res.FinalAmount.Equal(decimal.NewFromInt(80)))

	// 20% of 500 = 100, clamp 到 MaxDiscount 30
	res, err = svc.Validate(ctx, "PCT20", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(30)))
}

func TestValidate_FixedClampedToOrderAmount(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)

	seedCoupon(t, db, &model.Coupon{Code: "FIX50", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(50), IsActive: true})

	res, err := svc.Validate(context.Background(), "FIX50", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, res.FinalAmount.IsZero())
}

func TestValidate_IsPure(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)
	ctx := context.Background()
	amount := decimal.NewFromInt(100)

	c := seedCoupon(t, db, &model.Coupon{Code: "PURE", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
		UsageLimit: limitOf(3), IsActive: true})

	first, err := svc.Validate(ctx, "PURE", amount)
	require.NoError(t, err)
	second, err := svc.Validate(ctx, "PURE", amount)
	require.NoError(t, err)
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))

	var reloaded model.Coupon
	require.NoError(t, db.Where("id = ?", c.ID).First(&reloaded).Error)
	assert.EqualValues(t, 0, reloaded.UsageCount, "validate must not consume usage")
}

func TestCreate_DuplicateCode(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)
	ctx := context.Background()

	c := &model.Coupon{Code: "DUP", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5), IsActive: true,
		StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	require.NoError(t, svc.Create(ctx, c))

	dup := &model.Coupon{Code: "DUP", VendorID: v.ID, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(7), IsActive: true,
		StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, svc.Create(ctx, dup), ErrCouponCodeTaken)
}

func TestCreate_RejectsInvalidFields(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	svc := newCouponService(db, nil)
	ctx := context.Background()

	err := svc.Create(ctx, &model.Coupon{Code: "W", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
		StartDate: time.Now().Add(time.Hour), EndDate: time.Now()})
	assert.ErrorIs(t, err, ErrCouponInvalidWindow)

	err = svc.Create(ctx, &model.Coupon{Code: "P", VendorID: v.ID,
		DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(150),
		StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, ErrCouponInvalidDiscount)
}

func TestListActiveForVendor_CachesAndInvalidates(t *testing.T) {
	db := setupDB(t)
	v := seedVendor(t, db, false)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := newCouponService(db, cache)
	ctx := context.Background()

	seedCoupon(t, db, &model.Coupon{Code: "LIVE", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), IsActive: true})
	seedCoupon(t, db, &model.Coupon{Code: "DEAD", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), IsActive: false})
	seedCoupon(t, db, &model.Coupon{Code: "USEDUP", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), IsActive: true,
		UsageLimit: limitOf(1), UsageCount: 1})

	list, err := svc.ListActiveForVendor(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LIVE", list[0].Code)

	// 第二次命中缓存: 直接清库后仍返回旧列表
	require.NoError(t, db.Where("code = ?", "LIVE").Delete(&model.Coupon{}).Error)
	list, err = svc.ListActiveForVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// 写操作使缓存失效
	require.NoError(t, svc.Create(ctx, &model.Coupon{Code: "NEW", VendorID: v.ID,
		DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), IsActive: true,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour)}))
	list, err = svc.ListActiveForVendor(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "NEW", list[0].Code)
}
