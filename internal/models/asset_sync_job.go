package models

import "time"

// AssetSyncJob 资产状态同步 outbox
// 与完工记录在同一事务中写入，提交后立即执行，失败时由 worker 补偿。
type AssetSyncJob struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	ItemID       uint       `gorm:"index;not null" json:"item_id"`
	Direction    string     `gorm:"type:varchar(20);not null" json:"direction"`
	AssetID      uint       `gorm:"index;not null" json:"asset_id"`
	TargetStatus string     `gorm:"type:varchar(20);not null" json:"target_status"`
	State        string     `gorm:"type:varchar(20);index;not null;default:'pending'" json:"state"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`
	DoneAt       *time.Time `json:"done_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (AssetSyncJob) TableName() string {
	return "asset_sync_jobs"
}
