package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/perfume-mall/pkg/logger"
)

// ExpiryWorker 周期性清扫到期金币
// 清扫本身幂等（见 WalletService.ExpireOldCoins），并发运行安全
type ExpiryWorker struct {
	wallet    WalletService
	batchSize int
	interval  time.Duration
}

// NewExpiryWorker 创建到期清扫 worker
func NewExpiryWorker(wallet WalletService, batchSize int, interval time.Duration) *ExpiryWorker {
	if batchSize <= 0 {
		batchSize = 200
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{wallet: wallet, batchSize: batchSize, interval: interval}
}

// Start 启动清扫；返回停止函数
func (w *ExpiryWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.sweep()
			}
		}
	}()
	return func(ctx context.Context) error { close(stop); return nil }
}

// sweep 连续按批清扫直到没有到期流水
func (w *ExpiryWorker) sweep() {
	for {
		n, err := w.wallet.ExpireOldCoins(context.Background(), w.batchSize)
		if err != nil {
			logger.Warn("coin expiry sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("expired coins", zap.Int("transactions", n))
		}
		if n < w.batchSize {
			return
		}
	}
}
