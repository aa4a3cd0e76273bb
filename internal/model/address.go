package model

import "time"

// Address 收货地址
type Address struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_address_user;not null"`
	Line1     string `gorm:"type:varchar(255)"`
	City      string `gorm:"type:varchar(64)"`
	Phone     string `gorm:"type:varchar(32)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Address) TableName() string { return "addresses" }
