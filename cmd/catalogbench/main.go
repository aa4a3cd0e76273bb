package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/perfume-mall/internal/catalogcache"
	"github.com/d60-Lab/perfume-mall/internal/model"
)

type request struct {
	page int
	size int
}

// 店铺商品列表缓存策略对比: 无缓存 / 整页缓存 / ID 索引缓存
func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=postgres port=5434 sslmode=disable"
	}
	db := must(gorm.Open(postgres.Open(dsn), &gorm.Config{}))

	mustDo(db.Exec("DROP TABLE IF EXISTS products CASCADE").Error)
	mustDo(db.Exec("DROP TABLE IF EXISTS vendors CASCADE").Error)
	mustDo(db.AutoMigrate(&model.Vendor{}, &model.Product{}))

	const (
		productsPerVendor = 5000
		ttl               = 10 * time.Minute
	)

	fmt.Println("Setting up test data...")
	vendors := make([]model.Vendor, 3)
	for i := range vendors {
		vendors[i] = model.Vendor{ID: fmt.Sprintf("vendor%d", i+1), Name: fmt.Sprintf("maison-%d", i+1), Approved: true}
		mustDo(db.Create(&vendors[i]).Error)
	}

	for _, v := range vendors {
		batch := make([]model.Product, productsPerVendor)
		for i := 0; i < productsPerVendor; i++ {
			batch[i] = model.Product{
				ID:         uuid.NewString(),
				VendorID:   v.ID,
				Name:       fmt.Sprintf("%s-perfume-%04d", v.ID, i),
				Price:      decimal.NewFromInt(int64(30 + i%300)),
				Stock:      100,
				SalesCount: int64(rand.Intn(100000)),
				IsActive:   true,
			}
		}
		mustDo(db.CreateInBatches(&batch, 1000).Error)
	}
	fmt.Printf("Test data ready: %d vendors x %d products\n", len(vendors), productsPerVendor)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	svc := catalogcache.NewCatalogService(db, client, ttl, 0)

	// 三个店铺混合请求流
	allReqs := make([]struct {
		vendorID string
		req      request
	}, 0, 9000)
	for _, v := range vendors {
		for _, r := range makeRequests(3000) {
			allReqs = append(allReqs, struct {
				vendorID string
				req      request
			}{v.ID, r})
		}
	}

	noCache := runScenario(ctx, svc, allReqs, false, svc.FetchPageNoCache, client)
	naive := runScenario(ctx, svc, allReqs, true, svc.FetchPageNaiveCache, client)
	optimized := runScenario(ctx, svc, allReqs, true, svc.FetchPageOptimized, client)

	fmt.Printf("\nStorefront page latency (%d req across %d vendors, PostgreSQL + Redis)\n", len(allReqs), len(vendors))
	report("No cache", noCache)
	report("Naive page cache", naive)
	report("ID-index cache", optimized)
}

type scenarioResult struct {
	durations   []time.Duration
	counters    catalogcache.CatalogDBCounters
	cacheKeys   int
	memoryBytes int64
}

func report(name string, r scenarioResult) {
	fmt.Printf("%-18s avg=%v p95=%v p99=%v db_page=%d db_index=%d db_bulk=%d cache_keys=%d mem=%s\n",
		name, avg(r.durations), pct(r.durations, 0.95), pct(r.durations, 0.99),
		r.counters.PageQueries, r.counters.IndexLoads, r.counters.BulkLoads,
		r.cacheKeys, formatBytes(r.memoryBytes))
}

func runScenario(ctx context.Context, svc *catalogcache.CatalogService,
	reqs []struct {
		vendorID string
		req      request
	},
	warm bool,
	call func(context.Context, string, int, int) ([]catalogcache.ProductSnapshot, error),
	client *redis.Client,
) scenarioResult {
	client.FlushAll(ctx)
	svc.ResetCounters()

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			if _, err := call(ctx, r.vendorID, r.req.page, r.req.size); err != nil {
				panic(err)
			}
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		if _, err := call(ctx, r.vendorID, r.req.page, r.req.size); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "*").Result()
	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}

	return scenarioResult{
		durations:   out,
		counters:    svc.Counters(),
		cacheKeys:   len(keys),
		memoryBytes: memBytes,
	}
}

// parseRedisMemory extracts used_memory from Redis INFO
func parseRedisMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "used_memory:"); ok {
			var num int64
			for _, r := range v {
				if r < '0' || r > '9' {
					break
				}
				num = num*10 + int64(r-'0')
			}
			return num
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func makeRequests(n int) []request {
	sizes := []int{20, 40, 60}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		size := sizes[rnd.Intn(len(sizes))]
		page := 1
		if rnd.Float64() > 0.72 {
			// 模拟深翻页
			page = 2 + rnd.Intn(60)
		}
		out[i] = request{page: page, size: size}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
