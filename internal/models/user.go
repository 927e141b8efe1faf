package models

import (
	"time"

	"gorm.io/gorm"
)

// User 后台与司机账号
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	DisplayName  string         `gorm:"type:varchar(150);not null;default:''" json:"display_name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"type:varchar(20);index;not null" json:"role"`
	Phone        string         `gorm:"type:varchar(40);not null;default:''" json:"phone"`
	Status       string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Name 审计与展示使用的名称
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
