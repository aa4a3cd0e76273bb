package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/perfume-mall/internal/repository"
	"github.com/d60-Lab/perfume-mall/internal/service"
	"github.com/d60-Lab/perfume-mall/pkg/response"
)

// Handler 聚合各业务服务
type Handler struct {
	orders  service.OrderService
	wallet  service.WalletService
	coupons service.CouponService
	carts   repository.CartRepository
}

func New(orders service.OrderService, wallet service.WalletService, coupons service.CouponService, carts repository.CartRepository) *Handler {
	return &Handler{orders: orders, wallet: wallet, coupons: coupons, carts: carts}
}

// writeServiceError 将服务层哨兵错误映射为 HTTP 状态码
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrWalletNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrAddressNotOwned):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCancelNotAllowed),
		errors.Is(err, service.ErrCouponUsageLimitHit),
		errors.Is(err, service.ErrCouponCodeTaken),
		errors.Is(err, service.ErrInsufficientBalance):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrInvalidCoinAmount),
		errors.Is(err, service.ErrCouponInactive),
		errors.Is(err, service.ErrCouponNotYetValid),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrCouponBelowMinimum),
		errors.Is(err, service.ErrCouponInvalidWindow),
		errors.Is(err, service.ErrCouponInvalidDiscount):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
