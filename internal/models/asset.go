package models

import "time"

// Asset 机队设备
type Asset struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SerialNo  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"serial_no"`
	Model     string    `gorm:"type:varchar(200);not null" json:"model"`
	Category  string    `gorm:"type:varchar(100);index;not null;default:''" json:"category"`
	Status    string    `gorm:"type:varchar(20);index;not null;default:'AVAILABLE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Asset) TableName() string {
	return "assets"
}
