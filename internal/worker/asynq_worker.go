package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/provider"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAssetSync, c.handleAssetSync)
	mux.HandleFunc(queue.TaskAssetSyncSweep, c.handleAssetSyncSweep)
	mux.HandleFunc(queue.TaskUploadCleanup, c.handleUploadCleanup)
	mux.HandleFunc(queue.TaskAuditRecord, c.handleAuditRecord)
}

func (c *Consumer) handleAssetSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_asset_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AssetSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_asset_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.JobID == 0 {
		logger.Debugw("worker_asset_sync_skip_invalid_payload", "job_id", payload.JobID)
		return nil
	}
	if err := c.AssetSyncService.Run(ctx, payload.JobID); err != nil {
		if errors.Is(err, service.ErrAssetSyncJobNotFound) {
			logger.Debugw("worker_asset_sync_skip_job_not_found", "job_id", payload.JobID)
			return nil
		}
		logger.Warnw("worker_asset_sync_failed", "job_id", payload.JobID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleAssetSyncSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	handled, err := c.AssetSyncService.Sweep(ctx)
	if err != nil {
		logger.Warnw("worker_asset_sync_sweep_failed", "handled", handled, "error", err)
		return err
	}
	if handled > 0 {
		logger.Infow("worker_asset_sync_sweep_done", "handled", handled)
	}
	return nil
}

func (c *Consumer) handleUploadCleanup(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_upload_cleanup_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.UploadCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_upload_cleanup_unmarshal_failed", "error", err)
		return err
	}
	if len(payload.Keys) == 0 {
		return nil
	}
	if err := c.CompletionFormService.CleanupUploads(ctx, payload); err != nil {
		logger.Warnw("worker_upload_cleanup_failed",
			"item_id", payload.ItemID,
			"direction", payload.Direction,
			"keys", len(payload.Keys),
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleAuditRecord(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.AuditRecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_audit_record_unmarshal_failed", "error", err)
		return err
	}
	if payload.ActionCode == "" {
		logger.Debugw("worker_audit_record_skip_invalid_payload")
		return nil
	}
	if err := c.AuditService.Persist(payload); err != nil {
		logger.Warnw("worker_audit_record_failed", "action_code", payload.ActionCode, "target_id", payload.TargetID, "error", err)
		return err
	}
	return nil
}
