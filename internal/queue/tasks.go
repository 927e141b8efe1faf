package queue

import (
	"encoding/json"

	"github.com/renthportal/renthportal-sub001/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAssetSync 单条资产状态同步补偿
	TaskAssetSync = constants.TaskAssetSync
	// TaskAssetSyncSweep 批量扫描未完成的同步任务
	TaskAssetSyncSweep = constants.TaskAssetSyncSweep
	// TaskUploadCleanup 清理孤立上传
	TaskUploadCleanup = constants.TaskUploadCleanup
	// TaskAuditRecord 写审计日志
	TaskAuditRecord = constants.TaskAuditRecord
)

// AssetSyncPayload 资产同步任务载荷
type AssetSyncPayload struct {
	JobID uint `json:"job_id"`
}

// UploadCleanupPayload 孤立上传清理载荷
type UploadCleanupPayload struct {
	ItemID    uint     `json:"item_id"`
	Direction string   `json:"direction"`
	Keys      []string `json:"keys"`
}

// AuditRecordPayload 审计日志载荷
type AuditRecordPayload struct {
	ActorID    uint                   `json:"actor_id"`
	ActorName  string                 `json:"actor_name"`
	ActionCode string                 `json:"action_code"`
	TargetType string                 `json:"target_type"`
	TargetID   uint                   `json:"target_id"`
	RequestID  string                 `json:"request_id"`
	Detail     map[string]interface{} `json:"detail"`
}

func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewAssetSyncTask 创建资产同步任务
func NewAssetSyncTask(payload AssetSyncPayload) (*asynq.Task, error) {
	return newTask(TaskAssetSync, payload)
}

// NewAssetSyncSweepTask 创建批量扫描任务
func NewAssetSyncSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAssetSyncSweep, nil)
}

// NewUploadCleanupTask 创建孤立上传清理任务
func NewUploadCleanupTask(payload UploadCleanupPayload) (*asynq.Task, error) {
	return newTask(TaskUploadCleanup, payload)
}

// NewAuditRecordTask 创建审计日志任务
func NewAuditRecordTask(payload AuditRecordPayload) (*asynq.Task, error) {
	return newTask(TaskAuditRecord, payload)
}
