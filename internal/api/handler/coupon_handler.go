package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/pkg/response"
)

type validateCouponRequest struct {
	Code        string          `json:"code" binding:"required,couponcode"`
	OrderAmount decimal.Decimal `json:"order_amount" binding:"required"`
}

// ValidateCoupon 试算优惠券折扣（只读，不占用次数）
// @Summary 校验优惠券
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param request body validateCouponRequest true "券码与订单金额"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/coupons/validate [post]
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.coupons.Validate(c.Request.Context(), req.Code, req.OrderAmount)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"discount_amount": v.DiscountAmount,
		"final_amount":    v.FinalAmount,
		"coupon":          v.Coupon,
	})
}

// ListVendorCoupons 查询商家当前可用券
// @Summary 商家可用券列表
// @Tags 优惠券
// @Param vendor_id path string true "商家ID"
// @Success 200 {object} response.Response
// @Router /api/v1/coupons/vendor/{vendor_id} [get]
func (h *Handler) ListVendorCoupons(c *gin.Context) {
	list, err := h.coupons.ListActiveForVendor(c.Request.Context(), c.Param("vendor_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, list)
}

type couponRequest struct {
	Code           string          `json:"code" binding:"required,couponcode"`
	VendorID       string          `json:"vendor_id" binding:"required"`
	DiscountType   string          `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue  decimal.Decimal `json:"discount_value" binding:"required"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`
	UsageLimit     *int64          `json:"usage_limit"`
	StartDate      time.Time       `json:"start_date" binding:"required"`
	EndDate        time.Time       `json:"end_date" binding:"required"`
	IsActive       bool            `json:"is_active"`
}

func (r *couponRequest) toModel() *model.Coupon {
	return &model.Coupon{
		Code:           r.Code,
		VendorID:       r.VendorID,
		DiscountType:   r.DiscountType,
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		MaxDiscount:    r.MaxDiscount,
		UsageLimit:     r.UsageLimit,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		IsActive:       r.IsActive,
	}
}

// CreateCoupon 商家发券
// @Summary 创建优惠券
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param request body couponRequest true "券信息"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/coupons [post]
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon := req.toModel()
	if err := h.coupons.Create(c.Request.Context(), coupon); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 修改券配置
// @Summary 更新优惠券
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param coupon_id path string true "券ID"
// @Param request body couponRequest true "券信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/coupons/{coupon_id} [put]
func (h *Handler) UpdateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon := req.toModel()
	coupon.ID = c.Param("coupon_id")
	if err := h.coupons.Update(c.Request.Context(), coupon); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}
