package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/perfume-mall/internal/middleware"
	"github.com/d60-Lab/perfume-mall/internal/service"
	"github.com/d60-Lab/perfume-mall/pkg/response"
)

type checkoutRequest struct {
	AddressID      string `json:"address_id" binding:"required"`
	PaymentMethod  string `json:"payment_method"`
	DeliveryMethod string `json:"delivery_method" binding:"omitempty,oneof=STANDARD EXPRESS"`
	GiftWrap       string `json:"gift_wrap" binding:"omitempty,oneof=NONE BASIC PREMIUM LUXURY"`
	CoinsToUse     int64  `json:"coins_to_use" binding:"min=0"`
	CouponCode     string `json:"coupon_code" binding:"omitempty,couponcode"`
}

// Checkout 购物车结算下单
// @Summary 购物车结算
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body checkoutRequest true "结算信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.orders.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:         middleware.UserID(c),
		AddressID:      req.AddressID,
		PaymentMethod:  req.PaymentMethod,
		DeliveryMethod: req.DeliveryMethod,
		GiftWrap:       req.GiftWrap,
		CoinsToUse:     req.CoinsToUse,
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

type quickBuyRequest struct {
	AddressID      string `json:"address_id" binding:"required"`
	ProductID      string `json:"product_id" binding:"required"`
	Quantity       int64  `json:"quantity" binding:"min=0"`
	PaymentMethod  string `json:"payment_method"`
	DeliveryMethod string `json:"delivery_method" binding:"omitempty,oneof=STANDARD EXPRESS"`
	GiftWrap       string `json:"gift_wrap" binding:"omitempty,oneof=NONE BASIC PREMIUM LUXURY"`
	CoinsToUse     int64  `json:"coins_to_use" binding:"min=0"`
	CouponCode     string `json:"coupon_code" binding:"omitempty,couponcode"`
}

// QuickBuy 单品直购（跳过购物车）
// @Summary 快捷购买
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body quickBuyRequest true "直购信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/quick-buy [post]
func (h *Handler) QuickBuy(c *gin.Context) {
	var req quickBuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.orders.QuickBuy(c.Request.Context(), service.QuickBuyInput{
		UserID:         middleware.UserID(c),
		AddressID:      req.AddressID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		PaymentMethod:  req.PaymentMethod,
		DeliveryMethod: req.DeliveryMethod,
		GiftWrap:       req.GiftWrap,
		CoinsToUse:     req.CoinsToUse,
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 查询本人订单详情
// @Summary 订单详情
// @Tags 订单
// @Param order_id path string true "订单ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/{order_id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetForUser(c.Request.Context(), middleware.UserID(c), c.Param("order_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 查询本人订单列表
// @Summary 订单列表
// @Tags 订单
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	list, err := h.orders.ListByUser(c.Request.Context(), middleware.UserID(c), (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type updateStatusRequest struct {
	Status         string `json:"status" binding:"required,oneof=CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED"`
	TrackingNumber string `json:"tracking_number"`
}

// UpdateOrderStatus 运营侧推进订单状态
// @Summary 更新订单状态
// @Tags 订单
// @Accept json
// @Produce json
// @Param order_id path string true "订单ID"
// @Param request body updateStatusRequest true "目标状态"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/{order_id}/status [put]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("order_id"), req.Status, req.TrackingNumber)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 用户取消订单（仅 PENDING / CONFIRMED）
// @Summary 取消订单
// @Tags 订单
// @Param order_id path string true "订单ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/{order_id}/cancel [post]
func (h *Handler) CancelOrder(c *gin.Context) {
	if err := h.orders.Cancel(c.Request.Context(), middleware.UserID(c), c.Param("order_id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
