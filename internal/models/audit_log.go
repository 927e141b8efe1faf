package models

import "time"

// AuditLog 业务操作审计记录
type AuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ActorID    uint      `gorm:"index;not null;default:0" json:"actor_id"`
	ActorName  string    `gorm:"type:varchar(150);not null;default:''" json:"actor_name"`
	ActionCode string    `gorm:"type:varchar(60);index;not null" json:"action_code"`
	TargetType string    `gorm:"type:varchar(40);index;not null;default:''" json:"target_type"`
	TargetID   uint      `gorm:"index;not null;default:0" json:"target_id"`
	RequestID  string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON JSON      `gorm:"type:json" json:"detail"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
