package catalogcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/model"
)

// ProductSnapshot contains the fields a vendor storefront page actually renders.
type ProductSnapshot struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	SalesCount int64           `json:"sales_count"`
}

// CatalogService demonstrates different caching strategies for vendor
// storefront listings (products ordered by sales).
type CatalogService struct {
	db      *gorm.DB
	cache   *redis.Client
	ttl     time.Duration
	dbDelay time.Duration

	pageQueries atomic.Int64
	indexLoads  atomic.Int64
	bulkLoads   atomic.Int64
}

// NewCatalogService builds a demo service using the provided DB + Redis client.
// dbDelay simulates the round-trip cost of hitting the primary store.
func NewCatalogService(db *gorm.DB, cache *redis.Client, ttl, dbDelay time.Duration) *CatalogService {
	return &CatalogService{db: db, cache: cache, ttl: ttl, dbDelay: dbDelay}
}

func (s *CatalogService) FetchPageNoCache(ctx context.Context, vendorID string, page, size int) ([]ProductSnapshot, error) {
	return s.queryPage(ctx, vendorID, page, size)
}

// FetchPageNaiveCache 每个 page/size 组合缓存一份完整 JSON
func (s *CatalogService) FetchPageNaiveCache(ctx context.Context, vendorID string, page, size int) ([]ProductSnapshot, error) {
	key := fmt.Sprintf("catalog:%s:%d:%d", vendorID, page, size)
	if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var out []ProductSnapshot
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			return out, nil
		}
	}

	rows, err := s.queryPage(ctx, vendorID, page, size)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rows); err == nil {
		_ = s.cache.Set(ctx, key, payload, s.ttl).Err()
	}
	return rows, nil
}

// FetchPageOptimized 缓存商品 ID 索引（Redis List）+ 单品快照，
// 分页只做 LRANGE，不同 page/size 共享同一份数据
func (s *CatalogService) FetchPageOptimized(ctx context.Context, vendorID string, page, size int) ([]ProductSnapshot, error) {
	key := fmt.Sprintf("catalog:index:%s", vendorID)

	start := (page - 1) * size
	end := start + size - 1

	exists, _ := s.cache.Exists(ctx, key).Result()
	var ids []string
	if exists > 0 {
		ids, _ = s.cache.LRange(ctx, key, int64(start), int64(end)).Result()
	}

	if len(ids) == 0 {
		allIDs, err := s.loadProductIDsAndCache(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		if start >= len(allIDs) {
			return []ProductSnapshot{}, nil
		}
		endIdx := start + size
		if endIdx > len(allIDs) {
			endIdx = len(allIDs)
		}
		ids = allIDs[start:endIdx]
	}

	return s.loadProducts(ctx, ids)
}

func (s *CatalogService) loadProductIDsAndCache(ctx context.Context, vendorID string) ([]string, error) {
	time.Sleep(s.dbDelay)
	s.indexLoads.Add(1)

	var ids []string
	if err := s.db.WithContext(ctx).
		Table("products").
		Select("id").
		Where("vendor_id = ? AND is_active = ?", vendorID, true).
		Order("sales_count DESC").
		Scan(&ids).Error; err != nil {
		return nil, err
	}

	key := fmt.Sprintf("catalog:index:%s", vendorID)
	if len(ids) > 0 {
		pipe := s.cache.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, toAnySlice(ids)...)
		pipe.Expire(ctx, key, s.ttl)
		pipe.Exec(ctx)
	}
	return ids, nil
}

func (s *CatalogService) queryPage(ctx context.Context, vendorID string, page, size int) ([]ProductSnapshot, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	time.Sleep(s.dbDelay)
	s.pageQueries.Add(1)

	var rows []ProductSnapshot
	err := s.db.WithContext(ctx).
		Table("products").
		Select("id", "name", "price", "sales_count").
		Where("vendor_id = ? AND is_active = ?", vendorID, true).
		Order("sales_count DESC").
		Offset((page - 1) * size).
		Limit(size).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CatalogService) loadProducts(ctx context.Context, ids []string) ([]ProductSnapshot, error) {
	if len(ids) == 0 {
		return []ProductSnapshot{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("product:%s", id)
	}

	cached := make(map[string]ProductSnapshot, len(ids))
	if vals, err := s.cache.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			if v == nil {
				continue
			}
			if str, ok := v.(string); ok {
				var snap ProductSnapshot
				if uErr := json.Unmarshal([]byte(str), &snap); uErr == nil {
					cached[ids[i]] = snap
				}
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		s.bulkLoads.Add(1)
		time.Sleep(s.dbDelay)

		var products []model.Product
		if err := s.db.WithContext(ctx).Where("id IN ?", missing).Find(&products).Error; err != nil {
			return nil, err
		}
		for _, p := range products {
			snap := ProductSnapshot{ID: p.ID, Name: p.Name, Price: p.Price, SalesCount: p.SalesCount}
			cached[p.ID] = snap
			if payload, err := json.Marshal(snap); err == nil {
				_ = s.cache.Set(ctx, fmt.Sprintf("product:%s", p.ID), payload, s.ttl).Err()
			}
		}
	}

	result := make([]ProductSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := cached[id]; ok {
			result = append(result, snap)
		}
	}
	return result, nil
}

func toAnySlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}

// ResetCounters clears recorded db call counters.
func (s *CatalogService) ResetCounters() {
	s.pageQueries.Store(0)
	s.indexLoads.Store(0)
	s.bulkLoads.Store(0)
}

// Counters reports how many underlying DB loads were executed.
func (s *CatalogService) Counters() CatalogDBCounters {
	return CatalogDBCounters{
		PageQueries: s.pageQueries.Load(),
		IndexLoads:  s.indexLoads.Load(),
		BulkLoads:   s.bulkLoads.Load(),
	}
}

// CatalogDBCounters summarises DB hits during a run.
type CatalogDBCounters struct {
	PageQueries int64
	IndexLoads  int64
	BulkLoads   int64
}
