package model

import "time"

// User 用户（CoinBalance 为钱包余额的冗余镜像，仅供旧读路径）
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Username    string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email       string `gorm:"type:varchar(128);uniqueIndex;not null"`
	CoinBalance int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }
