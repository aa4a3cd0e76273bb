package catalogcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

func setupCatalog(t *testing.T, productCount int) (*CatalogService, *redis.Client, string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Vendor{}, &model.Product{}))

	vendor := &model.Vendor{ID: uuid.NewString(), Name: "maison"}
	require.NoError(t, db.Create(vendor).Error)
	for i := 0; i < productCount; i++ {
		p := &model.Product{
			ID:         uuid.NewString(),
			VendorID:   vendor.ID,
			Name:       fmt.Sprintf("perfume-%03d", i),
			Price:      decimal.NewFromInt(int64(50 + i)),
			Stock:      100,
			SalesCount: int64(productCount - i),
			IsActive:   true,
		}
		require.NoError(t, db.Create(p).Error)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewCatalogService(db, client, time.Minute, 0), client, vendor.ID
}

func TestCatalogStrategiesAgree(t *testing.T) {
	svc, _, vendorID := setupCatalog(t, 30)
	ctx := context.Background()

	plain, err := svc.FetchPageNoCache(ctx, vendorID, 2, 10)
	require.NoError(t, err)
	require.Len(t, plain, 10)

	naive, err := svc.FetchPageNaiveCache(ctx, vendorID, 2, 10)
	require.NoError(t, err)
	optimized, err := svc.FetchPageOptimized(ctx, vendorID, 2, 10)
	require.NoError(t, err)

	for i := range plain {
		assert.Equal(t, plain[i].ID, naive[i].ID)
		assert.Equal(t, plain[i].ID, optimized[i].ID)
	}
	// 销量降序
	for i := 1; i < len(plain); i++ {
		assert.GreaterOrEqual(t, plain[i-1].SalesCount, plain[i].SalesCount)
	}
}

func TestNaiveCacheSkipsDBOnHit(t *testing.T) {
	svc, _, vendorID := setupCatalog(t, 10)
	ctx := context.Background()

	_, err := svc.FetchPageNaiveCache(ctx, vendorID, 1, 5)
	require.NoError(t, err)
	svc.ResetCounters()

	_, err = svc.FetchPageNaiveCache(ctx, vendorID, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 0, svc.Counters().PageQueries)
}

func TestOptimizedSharesIndexAcrossPages(t *testing.T) {
	svc, _, vendorID := setupCatalog(t, 40)
	ctx := context.Background()

	_, err := svc.FetchPageOptimized(ctx, vendorID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, svc.Counters().IndexLoads)

	// 翻页与换 page size 全部命中同一索引
	_, err = svc.FetchPageOptimized(ctx, vendorID, 3, 10)
	require.NoError(t, err)
	_, err = svc.FetchPageOptimized(ctx, vendorID, 2, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, svc.Counters().IndexLoads)
}

func TestOptimizedPastEndReturnsEmpty(t *testing.T) {
	svc, _, vendorID := setupCatalog(t, 5)
	ctx := context.Background()

	out, err := svc.FetchPageOptimized(ctx, vendorID, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}
