package model

import "time"

// Vendor 商家；IsSystem 标记系统商家（钱包兑换券挂靠对象，全局至多一个）
type Vendor struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(128);not null"`
	IsSystem  bool   `gorm:"index;not null;default:false"`
	Approved  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Vendor) TableName() string { return "vendors" }
