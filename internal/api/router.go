package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/perfume-mall/internal/api/handler"
	"github.com/d60-Lab/perfume-mall/internal/config"
	"github.com/d60-Lab/perfume-mall/internal/middleware"
)

// couponCodePattern 券码: 3-32 位大写字母/数字/连字符
func couponCodeValid(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 3 || len(code) > 32 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// NewRouter 组装全部路由与中间件
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("couponcode", couponCodeValid)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(otelgin.Middleware("perfume-mall"))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// 无需登录的只读入口
	v1.GET("/coupons/vendor/:vendor_id", h.ListVendorCoupons)

	auth := v1.Group("", middleware.Auth(cfg.JWT.Secret))
	{
		auth.GET("/cart", h.GetCart)
		auth.POST("/cart/items", h.AddCartItem)
		auth.DELETE("/cart/items/:product_id", h.RemoveCartItem)

		auth.POST("/orders/checkout", h.Checkout)
		auth.POST("/orders/quick-buy", h.QuickBuy)
		auth.GET("/orders", h.ListOrders)
		auth.GET("/orders/:order_id", h.GetOrder)
		auth.POST("/orders/:order_id/cancel", h.CancelOrder)
		auth.PUT("/orders/:order_id/status", h.UpdateOrderStatus)

		auth.GET("/wallet/balance", h.GetBalance)
		auth.GET("/wallet/history", h.GetHistory)
		auth.POST("/wallet/redeem", h.Redeem)

		auth.POST("/coupons", h.CreateCoupon)
		auth.PUT("/coupons/:coupon_id", h.UpdateCoupon)
		auth.POST("/coupons/validate", h.ValidateCoupon)
	}

	return r
}
