package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/perfume-mall/internal/model"
	"github.com/d60-Lab/perfume-mall/pkg/logger"
)

// ReconWorker 轮询补偿任务表并重放失败的钱包副作用
// clawback 任务不自动重放，留给人工结算
type ReconWorker struct {
	db           *gorm.DB
	wallet       WalletService
	claimLimit   int
	maxAttempts  int
	pollInterval time.Duration
}

// NewReconWorker 创建补偿 worker
func NewReconWorker(db *gorm.DB, wallet WalletService, claimLimit, maxAttempts int, pollInterval time.Duration) *ReconWorker {
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &ReconWorker{db: db, wallet: wallet, claimLimit: claimLimit, maxAttempts: maxAttempts, pollInterval: pollInterval}
}

// Start 启动轮询；返回停止函数
func (w *ReconWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	go w.loop(stop)
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *ReconWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				logger.Warn("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce claim 一批 pending 任务并重放，返回成功条数
func (w *ReconWorker) ProcessOnce(ctx context.Context) (int, error) {
	var batch []model.ReconciliationTask
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ? AND kind <> ?", model.ReconStatusPending, model.ReconKindClawback).
			Order("created_at").
			Limit(w.claimLimit)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, t := range batch {
			ids[i] = t.ID
		}
		return tx.Model(&model.ReconciliationTask{}).
			Where("id IN ?", ids).
			Update("status", model.ReconStatusProcessing).Error
	})
	if err != nil {
		return 0, err
	}

	done := 0
	for _, task := range batch {
		if w.replay(ctx, task) {
			done++
		}
	}
	return done, nil
}

func (w *ReconWorker) replay(ctx context.Context, task model.ReconciliationTask) bool {
	var err error
	orderID := task.OrderID
	switch task.Kind {
	case model.ReconKindSpend:
		err = w.wallet.Spend(ctx, task.UserID, task.Coins, &orderID, "reconciled coin spend")
	case model.ReconKindAward:
		err = w.wallet.Award(ctx, task.UserID, task.Coins, model.CoinSourceOrderPurchase,
			"reconciled coin award", TxRefs{OrderID: &orderID})
	case model.ReconKindRefund:
		err = w.wallet.Refund(ctx, task.UserID, task.Coins, orderID, "reconciled coin refund")
	}

	now := time.Now()
	if err == nil {
		_ = w.db.WithContext(ctx).Model(&model.ReconciliationTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]any{
				"status":       model.ReconStatusDone,
				"attempts":     task.Attempts + 1,
				"processed_at": now,
			}).Error
		return true
	}

	status := model.ReconStatusPending
	if task.Attempts+1 >= w.maxAttempts {
		status = model.ReconStatusFailed
		logger.Error("reconciliation task exhausted retries",
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Error(err))
	}
	_ = w.db.WithContext(ctx).Model(&model.ReconciliationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"status":     status,
			"attempts":   task.Attempts + 1,
			"last_error": err.Error(),
		}).Error
	return false
}
