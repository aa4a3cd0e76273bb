package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/perfume-mall/internal/middleware"
	"github.com/d60-Lab/perfume-mall/pkg/response"
)

// GetBalance 查询金币余额
// @Summary 金币余额
// @Tags 钱包
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/wallet/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.wallet.Balance(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// GetHistory 查询金币流水
// @Summary 金币流水
// @Tags 钱包
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/wallet/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	list, err := h.wallet.History(c.Request.Context(), middleware.UserID(c), (page-1)*pageSize, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type redeemRequest struct {
	Coins int64 `json:"coins" binding:"required,min=1"`
}

// Redeem 金币兑换优惠券
// @Summary 金币兑换券
// @Tags 钱包
// @Accept json
// @Produce json
// @Param request body redeemRequest true "兑换金币数"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/wallet/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon, err := h.wallet.Redeem(c.Request.Context(), middleware.UserID(c), req.Coins)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}
