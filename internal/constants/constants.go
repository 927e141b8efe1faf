package constants

// 交付方向
const (
	DirectionDelivery = "delivery"
	DirectionReturn   = "return"
)

// 送达轨道状态
const (
	DeliveryStatusUnassigned = "UNASSIGNED"
	DeliveryStatusPlanned    = "PLANNED"
	DeliveryStatusInTransit  = "IN_TRANSIT"
	DeliveryStatusDelivered  = "DELIVERED"
)

// 回收轨道状态
const (
	ReturnStatusNone      = "NONE"
	ReturnStatusPlanned   = "PLANNED"
	ReturnStatusInTransit = "IN_TRANSIT"
	ReturnStatusReturned  = "RETURNED"
)

// 设备（机队资产）状态
const (
	AssetStatusAvailable   = "AVAILABLE"
	AssetStatusReserved    = "RESERVED"
	AssetStatusRented      = "RENTED"
	AssetStatusMaintenance = "MAINTENANCE"
)

// 设备状况标签，NO DAMAGE 与其它标签互斥
const (
	ConditionNoDamage   = "NO DAMAGE"
	ConditionDamageA    = "HASAR_A"
	ConditionDamageB    = "HASAR_B"
	ConditionDamageC    = "HASAR_C"
	ConditionMissing    = "EKSIK_PARCA"
	ConditionDirty      = "KIRLI"
	ConditionOilLeakage = "YAG_KACAGI"
)

// ConditionVocabulary 状况标签的固定词表（展示顺序）
var ConditionVocabulary = []string{
	ConditionNoDamage,
	ConditionDamageA,
	ConditionDamageB,
	ConditionDamageC,
	ConditionMissing,
	ConditionDirty,
	ConditionOilLeakage,
}

// 报价单状态
const (
	ProposalStatusDraft       = "DRAFT"
	ProposalStatusSent        = "SENT"
	ProposalStatusSigned      = "SIGNED"
	ProposalStatusTransferred = "TRANSFERRED"
	ProposalStatusRejected    = "REJECTED"
)

// 资产同步任务（outbox）状态
const (
	AssetSyncPending    = "pending"
	AssetSyncDone       = "done"
	AssetSyncFailed     = "failed"
	AssetSyncSuperseded = "superseded" // 已被更晚的状态变更覆盖，未执行
)

// 用户角色
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleDriver = "driver"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 审计动作
const (
	AuditProposalTransferred = "PROPOSAL_TRANSFERRED"
	AuditDeliveryAssigned    = "DELIVERY_ASSIGNED"
	AuditReturnPlanned       = "RETURN_PLANNED"
	AuditDeliveryStarted     = "DELIVERY_STARTED"
	AuditReturnStarted       = "RETURN_STARTED"
	AuditDeliveryCompleted   = "DELIVERY_COMPLETED"
	AuditReturnCompleted     = "RETURN_COMPLETED"
	AuditAssetStatusChanged  = "ASSET_STATUS_CHANGED"
	AuditAssetSyncReconciled = "ASSET_SYNC_RECONCILED"
	AuditAuthzPolicyGranted  = "AUTHZ_POLICY_GRANTED"
	AuditAuthzPolicyRevoked  = "AUTHZ_POLICY_REVOKED"
)

// 默认值
const (
	DefaultFuelLevel = 50
	RentalNoPrefix   = "RNT"
)

// 队列名称
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// 异步任务类型
const (
	TaskAssetSync      = "asset:sync"
	TaskAssetSyncSweep = "asset:sync_sweep"
	TaskUploadCleanup  = "upload:cleanup"
	TaskAuditRecord    = "audit:record"
)
