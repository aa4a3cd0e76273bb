package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Address{}, &model.Vendor{}, &model.Product{},
		&model.Cart{}, &model.CartItem{}, &model.Coupon{},
		&model.Order{}, &model.OrderItem{},
		&model.Wallet{}, &model.CoinTransaction{},
		&model.ReconciliationTask{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	u := &model.User{
		ID:       uuid.New().String(),
		Username: "u-" + uuid.New().String()[:8],
		Email:    uuid.New().String()[:8] + "@example.com",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedAddress(t *testing.T, db *gorm.DB, userID string) *model.Address {
	t.Helper()
	a := &model.Address{ID: uuid.New().String(), UserID: userID, Line1: "1 Marina Walk", City: "Dubai"}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	return a
}

func seedVendor(t *testing.T, db *gorm.DB, system bool) *model.Vendor {
	t.Helper()
	v := &model.Vendor{ID: uuid.New().String(), Name: "vendor-" + uuid.New().String()[:8], IsSystem: system, Approved: true}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return v
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID, price string, stock int64) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:       uuid.New().String(),
		VendorID: vendorID,
		Name:     "Oud Royale " + uuid.New().String()[:4],
		Price:    mustDecimal(t, price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedCoupon(t *testing.T, db *gorm.DB, c *model.Coupon) *model.Coupon {
	t.Helper()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.StartDate.IsZero() {
		c.StartDate = time.Now().Add(-time.Hour)
	}
	if c.EndDate.IsZero() {
		c.EndDate = time.Now().Add(24 * time.Hour)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return c
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

func reloadWallet(t *testing.T, db *gorm.DB, userID string) *model.Wallet {
	t.Helper()
	var w model.Wallet
	if err := db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	return &w
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()
	var u model.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &u
}

func reloadProduct(t *testing.T, db *gorm.DB, id string) *model.Product {
	t.Helper()
	var p model.Product
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &p
}
