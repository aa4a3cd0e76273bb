package model

import "time"

// ReconciliationTask 钱包补偿外发盒
// 订单主事务提交后的金币副作用（spend/award/refund）失败时落一条记录，
// 由后台 worker 重放，避免静默丢失
type ReconciliationTask struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Kind        string    `gorm:"type:varchar(16);not null"` // award / spend / refund / clawback
	UserID      string    `gorm:"type:varchar(36);index:idx_recon_user;not null"`
	OrderID     string    `gorm:"type:varchar(36);index"`
	Coins       int64     `gorm:"not null"`
	Status      string    `gorm:"type:varchar(16);index;not null;default:'pending'"` // pending, processing, done, failed
	Attempts    int       `gorm:"not null;default:0"`
	LastError   string    `gorm:"type:varchar(512)"`
	CreatedAt   time.Time `gorm:"index"`
	ProcessedAt *time.Time
}

func (ReconciliationTask) TableName() string { return "reconciliation_tasks" }

// 补偿任务类型常量
const (
	ReconKindAward    = "award"
	ReconKindSpend    = "spend"
	ReconKindRefund   = "refund"
	ReconKindClawback = "clawback"
)

// 补偿任务状态常量
const (
	ReconStatusPending    = "pending"
	ReconStatusProcessing = "processing"
	ReconStatusDone       = "done"
	ReconStatusFailed     = "failed"
)
