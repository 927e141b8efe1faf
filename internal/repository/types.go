package repository

import "time"

// DeliveryItemListFilter 管理端交付行查询条件
type DeliveryItemListFilter struct {
	Page           int
	PageSize       int
	RentalID       uint
	DriverID       uint
	DeliveryStatus string
	ReturnStatus   string
	// CompletedOnly 至少一个方向已完成（导出使用）
	CompletedOnly bool
	CompletedFrom *time.Time
	CompletedTo   *time.Time
}

// AssetListFilter 设备查询条件
type AssetListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// AuditLogListFilter 审计日志查询条件
type AuditLogListFilter struct {
	Page        int
	PageSize    int
	ActorID     uint
	ActionCode  string
	TargetType  string
	TargetID    uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AssetSyncJobListFilter outbox 查询条件
type AssetSyncJobListFilter struct {
	Page     int
	PageSize int
	State    string
	ItemID   uint
}
