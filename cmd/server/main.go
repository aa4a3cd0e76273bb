package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/api"
	"github.com/d60-Lab/perfume-mall/internal/api/handler"
	"github.com/d60-Lab/perfume-mall/internal/config"
	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/pricing"
	"github.com/d60-Lab/perfume-mall/internal/repository"
	"github.com/d60-Lab/perfume-mall/internal/service"
	"github.com/d60-Lab/perfume-mall/pkg/logger"
	"github.com/d60-Lab/perfume-mall/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracer, err := telemetry.Setup(ctx, "perfume-mall", cfg.Otel.Endpoint)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	defer shutdownTracer(ctx)

	db, err := openDB(cfg.Database)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Address{}, &model.Vendor{}, &model.Product{},
		&model.Cart{}, &model.CartItem{}, &model.Coupon{},
		&model.Order{}, &model.OrderItem{},
		&model.Wallet{}, &model.CoinTransaction{},
		&model.ReconciliationTask{},
	); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// 缓存不可用时降级为直查库
		logger.Warn("redis unavailable, coupon cache disabled", zap.Error(err))
		rdb = nil
	}

	wallet := service.NewWalletService(db,
		repository.NewUserRepository(db),
		repository.NewWalletRepository(db),
		repository.NewVendorRepository(db),
		service.WalletParams{
			CoinTTL:          time.Duration(cfg.Wallet.CoinTTLDays) * 24 * time.Hour,
			RedeemCoinRate:   decimal.NewFromFloat(cfg.Pricing.RedeemCoinRate),
			RedeemCouponDays: cfg.Wallet.RedeemCouponDays,
		})
	coupons := service.NewCouponService(repository.NewCouponRepository(db), rdb, time.Minute)
	carts := repository.NewCartRepository(db)
	orders := service.NewOrderService(db,
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		carts,
		repository.NewAddressRepository(db),
		coupons, wallet, ratesFromConfig(cfg.Pricing))

	stopRecon := service.NewReconWorker(db, wallet, 64, 5, 30*time.Second).Start()
	stopExpiry := service.NewExpiryWorker(wallet, 200, time.Hour).Start()

	router := api.NewRouter(cfg, handler.New(orders, wallet, coupons, carts))
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stopRecon(shutdownCtx)
	_ = stopExpiry(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	}
}

func ratesFromConfig(p config.PricingConfig) pricing.Rates {
	return pricing.Rates{
		TaxRate:          decimal.NewFromFloat(p.TaxRate),
		CheckoutCoinRate: decimal.NewFromFloat(p.CheckoutCoinRate),
		FreeShippingMin:  decimal.NewFromFloat(p.FreeShippingMin),
		ShippingStandard: decimal.NewFromFloat(p.ShippingStandard),
		ShippingExpress:  decimal.NewFromFloat(p.ShippingExpress),
		WrapBasic:        decimal.NewFromFloat(p.WrapBasic),
		WrapPremium:      decimal.NewFromFloat(p.WrapPremium),
		WrapLuxury:       decimal.NewFromFloat(p.WrapLuxury),
		EarnDivisor:      decimal.NewFromFloat(p.EarnDivisor),
	}
}
