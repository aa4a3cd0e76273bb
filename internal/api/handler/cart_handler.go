package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/perfume-mall/internal/middleware"
	"github.com/d60-Lab/perfume-mall/pkg/response"
)

// GetCart 查询本人购物车
// @Summary 购物车内容
// @Tags 购物车
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/cart [get]
func (h *Handler) GetCart(c *gin.Context) {
	ctx := c.Request.Context()
	cart, err := h.carts.GetOrCreate(ctx, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items, err := h.carts.Items(ctx, cart.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"cart_id": cart.ID, "items": items})
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// AddCartItem 加购（同商品合并数量）
// @Summary 添加购物车条目
// @Tags 购物车
// @Accept json
// @Produce json
// @Param request body cartItemRequest true "商品与数量"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/cart/items [post]
func (h *Handler) AddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	cart, err := h.carts.GetOrCreate(ctx, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.carts.AddItem(ctx, cart.ID, req.ProductID, req.Quantity); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveCartItem 移除购物车条目
// @Summary 删除购物车条目
// @Tags 购物车
// @Param product_id path string true "商品ID"
// @Success 200 {object} response.Response
// @Router /api/v1/cart/items/{product_id} [delete]
func (h *Handler) RemoveCartItem(c *gin.Context) {
	ctx := c.Request.Context()
	cart, err := h.carts.GetOrCreate(ctx, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.carts.RemoveItem(ctx, cart.ID, c.Param("product_id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
