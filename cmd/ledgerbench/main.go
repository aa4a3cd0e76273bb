package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/internal/repository"
	"github.com/d60-Lab/perfume-mall/internal/service"
)

// 金币账本压测: 并发 award/spend 后校验余额守恒
func main() {
	dsn := "file:ledgerbench?mode=memory&cache=shared"
	if s := os.Getenv("DSN"); s != "" { dsn = s }
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil { panic(err) }
	if err := db.AutoMigrate(&model.User{}, &model.Vendor{}, &model.Coupon{}, &model.Wallet{}, &model.CoinTransaction{}); err != nil { panic(err) }

	USERS := 20
	if s := os.Getenv("USERS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { USERS = v } }
	OPS := 200
	if s := os.Getenv("OPS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { OPS = v } }

	wallet := service.NewWalletService(db,
		repository.NewUserRepository(db),
		repository.NewWalletRepository(db),
		repository.NewVendorRepository(db),
		service.WalletParams{})

	userIDs := make([]string, USERS)
	for i := range userIDs {
		u := &model.User{ID: uuid.NewString(), Username: fmt.Sprintf("bench-%03d", i), Email: fmt.Sprintf("bench-%03d@local", i)}
		if err := db.Create(u).Error; err != nil { panic(err) }
		userIDs[i] = u.ID
	}

	ctx := context.Background()
	lats := make([]time.Duration, 0, USERS*OPS)
	var mu sync.Mutex

	st := time.Now()
	var wg sync.WaitGroup
	wg.Add(USERS)
	for _, uid := range userIDs {
		go func(uid string) {
			defer wg.Done()
			local := make([]time.Duration, 0, OPS)
			for i := 0; i < OPS; i++ {
				t0 := time.Now()
				if i%3 == 2 {
					// 余额不足时 spend 直接拒绝，属预期失败
					_ = wallet.Spend(ctx, uid, 5, nil, "bench spend")
				} else {
					_ = wallet.Award(ctx, uid, 10, model.CoinSourcePromotion, "bench award", service.TxRefs{})
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			lats = append(lats, local...)
			mu.Unlock()
		}(uid)
	}
	wg.Wait()
	elapsed := time.Since(st)

	// 守恒校验: balance == lifetime_earned - lifetime_spent
	broken := 0
	for _, uid := range userIDs {
		var w model.Wallet
		if err := db.Where("user_id = ?", uid).First(&w).Error; err != nil { panic(err) }
		if w.Balance != w.LifetimeEarned-w.LifetimeSpent { broken++ }
		var last model.CoinTransaction
		if err := db.Where("wallet_id = ?", w.ID).Order("created_at desc").First(&last).Error; err == nil {
			if last.BalanceAfter != w.Balance { broken++ }
		}
	}

	pct := func(vs []time.Duration, p float64) time.Duration {
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(float64(len(xs)) * p)
		if k >= len(xs) { k = len(xs) - 1 }
		return xs[k]
	}
	var sum time.Duration
	for _, d := range lats { sum += d }

	fmt.Printf("USERS=%d OPS=%d total=%d elapsed=%v\n", USERS, OPS, len(lats), elapsed)
	fmt.Printf("Ledger ops: avg=%v p95=%v p99=%v throughput=%.0f op/s\n",
		sum/time.Duration(len(lats)), pct(lats, 0.95), pct(lats, 0.99), float64(len(lats))/elapsed.Seconds())
	fmt.Printf("Conservation check: wallets=%d violations=%d\n", USERS, broken)
	if broken > 0 { os.Exit(1) }
}
