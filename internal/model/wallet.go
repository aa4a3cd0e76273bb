package model

import "time"

// Wallet 用户金币钱包
// 不变量: Balance == LifetimeEarned - LifetimeSpent - 已过期总额，且恒 >= 0
type Wallet struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Balance        int64  `gorm:"not null;default:0"`
	LifetimeEarned int64  `gorm:"not null;default:0"`
	LifetimeSpent  int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Wallet) TableName() string { return "wallets" }

// CoinTransaction 金币流水（append-only，BalanceAfter 为该笔入账后的余额快照）
type CoinTransaction struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	WalletID string `gorm:"type:varchar(36);index:idx_coin_tx_wallet;not null"`
	// Amount 带符号: 正为获得/退还，负为消费
	Amount       int64  `gorm:"not null"`
	Type         string `gorm:"type:varchar(16);index:idx_coin_tx_type_expires;not null"`
	Source       string `gorm:"type:varchar(24);not null"`
	BalanceAfter int64  `gorm:"not null"`
	Description  string `gorm:"type:varchar(255)"`
	// ExpiresAt 仅 EARNED 流水有值
	ExpiresAt *time.Time `gorm:"index:idx_coin_tx_type_expires"`
	OrderID   *string    `gorm:"type:varchar(36);index"`
	ProductID *string    `gorm:"type:varchar(36)"`
	ReviewID  *string    `gorm:"type:varchar(36)"`
	CreatedAt time.Time
}

func (CoinTransaction) TableName() string { return "coin_transactions" }

// 流水类型常量
const (
	CoinTxEarned  = "EARNED"
	CoinTxSpent   = "SPENT"
	CoinTxExpired = "EXPIRED"
)

// 流水来源常量
const (
	CoinSourceOrderPurchase = "ORDER_PURCHASE"
	CoinSourceProductReview = "PRODUCT_REVIEW"
	CoinSourceReferral      = "REFERRAL"
	CoinSourcePromotion     = "PROMOTION"
	CoinSourceRefund        = "REFUND"
	CoinSourceAdmin         = "ADMIN"
	CoinSourceRedemption    = "REDEMPTION"
)
