package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/repository"
)

var (
	ErrCouponNotFound        = errors.New("coupon code not found")
	ErrCouponInactive        = errors.New("coupon is inactive")
	ErrCouponNotYetValid     = errors.New("coupon is not yet valid")
	ErrCouponExpired         = errors.New("coupon has expired")
	ErrCouponUsageLimitHit   = errors.New("coupon usage limit reached")
	ErrCouponBelowMinimum    = errors.New("order amount below coupon minimum")
	ErrCouponCodeTaken       = errors.New("coupon code already exists")
	ErrCouponInvalidWindow   = errors.New("coupon start date must be before end date")
	ErrCouponInvalidDiscount = errors.New("percentage discount cannot exceed 100")
)

// CouponValidation 校验通过后的折扣结果
type CouponValidation struct {
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	Coupon         *model.Coupon
}

// CouponService 优惠券服务
type CouponService interface {
	// Validate 纯读校验: 不改变任何状态，用券计数在下单事务内递增
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*CouponValidation, error)
	ListActiveForVendor(ctx context.Context, vendorID string) ([]*model.Coupon, error)
	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
}

type couponService struct {
	repo     repository.CouponRepository
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewCouponService 创建优惠券服务; cache 可为 nil（直查库）
func NewCouponService(repo repository.CouponRepository, cache *redis.Client, cacheTTL time.Duration) CouponService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &couponService{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

func (s *couponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*CouponValidation, error) {
	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}

	now := time.Now()
	switch {
	case !coupon.IsActive:
		return nil, ErrCouponInactive
	case now.Before(coupon.StartDate):
		return nil, ErrCouponNotYetValid
	case now.After(coupon.EndDate):
		return nil, ErrCouponExpired
	case coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit:
		return nil, ErrCouponUsageLimitHit
	case coupon.MinOrderAmount.IsPositive() && orderAmount.LessThan(coupon.MinOrderAmount):
		return nil, fmt.Errorf("%w: need at least %s", ErrCouponBelowMinimum, coupon.MinOrderAmount)
	}

	var discount decimal.Decimal
	if coupon.DiscountType == model.DiscountPercentage {
		discount = orderAmount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	} else {
		discount = coupon.DiscountValue
	}
	if coupon.MaxDiscount.IsPositive() && discount.GreaterThan(coupon.MaxDiscount) {
		discount = coupon.MaxDiscount
	}
	// 折扣不超过订单金额
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}

	return &CouponValidation{
		DiscountAmount: discount,
		FinalAmount:    orderAmount.Sub(discount),
		Coupon:         coupon,
	}, nil
}

func (s *couponService) ListActiveForVendor(ctx context.Context, vendorID string) ([]*model.Coupon, error) {
	key := vendorCouponsKey(vendorID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var out []*model.Coupon
			if uErr := json.Unmarshal(data, &out); uErr == nil {
				return out, nil
			}
		}
	}

	coupons, err := s.repo.ListActiveForVendor(ctx, vendorID, time.Now())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if payload, err := json.Marshal(coupons); err == nil {
			_ = s.cache.Set(ctx, key, payload, s.cacheTTL).Err()
		}
	}
	return coupons, nil
}

func (s *couponService) Create(ctx context.Context, coupon *model.Coupon) error {
	if err := checkCouponFields(coupon); err != nil {
		return err
	}
	taken, err := s.repo.ExistsByCode(ctx, coupon.Code)
	if err != nil {
		return err
	}
	if taken {
		return ErrCouponCodeTaken
	}
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return err
	}
	s.invalidate(ctx, coupon.VendorID)
	return nil
}

func (s *couponService) Update(ctx context.Context, coupon *model.Coupon) error {
	if err := checkCouponFields(coupon); err != nil {
		return err
	}
	existing, err := s.repo.GetByCode(ctx, coupon.Code)
	if err == nil && existing.ID != coupon.ID {
		return ErrCouponCodeTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := s.repo.Update(ctx, coupon); err != nil {
		return err
	}
	s.invalidate(ctx, coupon.VendorID)
	return nil
}

func checkCouponFields(coupon *model.Coupon) error {
	if !coupon.StartDate.Before(coupon.EndDate) {
		return ErrCouponInvalidWindow
	}
	if coupon.DiscountType == model.DiscountPercentage &&
		coupon.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return ErrCouponInvalidDiscount
	}
	return nil
}

func (s *couponService) invalidate(ctx context.Context, vendorID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, vendorCouponsKey(vendorID)).Err()
	}
}

func vendorCouponsKey(vendorID string) string {
	return fmt.Sprintf("coupons:active:%s", vendorID)
}
