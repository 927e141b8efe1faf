package service

import (
	"context"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/repository"
)

// AssetSyncService 执行与补偿资产状态同步（outbox 消费者）
type AssetSyncService struct {
	jobRepo     repository.AssetSyncJobRepository
	assetRepo   repository.AssetRepository
	itemRepo    repository.DeliveryItemRepository
	audit       *AuditService
	queueClient *queue.Client
	maxAttempts int
	batchSize   int
}

// NewAssetSyncService 创建资产同步服务
func NewAssetSyncService(jobRepo repository.AssetSyncJobRepository, assetRepo repository.AssetRepository, itemRepo repository.DeliveryItemRepository, audit *AuditService, queueClient *queue.Client, maxAttempts, batchSize int) *AssetSyncService {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &AssetSyncService{
		jobRepo:     jobRepo,
		assetRepo:   assetRepo,
		itemRepo:    itemRepo,
		audit:       audit,
		queueClient: queueClient,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
	}
}

// Run 执行一条同步任务
func (s *AssetSyncService) Run(ctx context.Context, jobID uint) error {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrAssetSyncJobNotFound
	}
	if job.State != constants.AssetSyncPending {
		return nil
	}

	reason, err := s.supersededReason(job)
	if err != nil {
		return err
	}
	if reason != "" {
		if err := s.jobRepo.MarkSuperseded(job.ID, reason, time.Now()); err != nil {
			return err
		}
		logger.Infow("asset_sync_job_superseded",
			"job_id", job.ID,
			"asset_id", job.AssetID,
			"item_id", job.ItemID,
			"reason", reason,
		)
		return nil
	}

	affected, err := s.assetRepo.UpdateStatus(job.AssetID, job.TargetStatus)
	if err == nil && affected == 0 {
		err = ErrAssetNotFound
	}
	if err != nil {
		if markErr := s.jobRepo.MarkAttemptFailed(job.ID, err.Error(), s.maxAttempts); markErr != nil {
			logger.Warnw("asset_sync_mark_failed_error", "job_id", job.ID, "error", markErr)
		}
		return err
	}
	if err := s.jobRepo.MarkDone(job.ID, time.Now()); err != nil {
		logger.Warnw("asset_sync_mark_done_failed", "job_id", job.ID, "error", err)
	}

	action := constants.AuditAssetStatusChanged
	if job.Attempts > 0 {
		action = constants.AuditAssetSyncReconciled
	}
	s.audit.Record(ctx, AuditEntry{
		Actor:      SystemSession,
		ActionCode: action,
		TargetType: "asset",
		TargetID:   job.AssetID,
		Detail: models.JSON{
			"item_id":   job.ItemID,
			"direction": job.Direction,
			"status":    job.TargetStatus,
			"job_id":    job.ID,
		},
	})
	return nil
}

// supersededReason 任务目标状态已过期时返回原因，空串表示仍应执行
func (s *AssetSyncService) supersededReason(job *models.AssetSyncJob) (string, error) {
	newer, err := s.jobRepo.HasNewerDone(job.AssetID, job.ID)
	if err != nil {
		return "", err
	}
	if newer {
		return "newer_sync_applied", nil
	}
	item, err := s.itemRepo.GetByID(job.ItemID)
	if err != nil {
		return "", err
	}
	if item == nil || item.AssetID == nil || *item.AssetID != job.AssetID {
		return "asset_reassigned", nil
	}
	if job.Direction == constants.DirectionDelivery && item.Return.Status == constants.ReturnStatusReturned {
		return "item_returned", nil
	}
	held, err := s.itemRepo.AssetHeldByOther(job.AssetID, job.ItemID)
	if err != nil {
		return "", err
	}
	if held {
		return "asset_held_by_other_item", nil
	}
	return "", nil
}

// Schedule 同步失败后交给队列稍后重试
func (s *AssetSyncService) Schedule(jobID uint, delay time.Duration) {
	if err := s.queueClient.EnqueueAssetSync(queue.AssetSyncPayload{JobID: jobID}, delay); err != nil {
		logger.Warnw("asset_sync_enqueue_failed", "job_id", jobID, "error", err)
	}
}

// Sweep 扫描未完成的同步任务；队列可用时分发，否则就地执行
func (s *AssetSyncService) Sweep(ctx context.Context) (int, error) {
	jobs, err := s.jobRepo.ListDue(s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, err
	}
	handled := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}
		if s.queueClient.Enabled() {
			s.Schedule(job.ID, 0)
			handled++
			continue
		}
		if err := s.Run(ctx, job.ID); err != nil {
			logger.Warnw("asset_sync_sweep_job_failed", "job_id", job.ID, "asset_id", job.AssetID, "error", err)
			continue
		}
		handled++
	}
	return handled, nil
}

// Retry 管理端手动重试 failed 任务
func (s *AssetSyncService) Retry(ctx context.Context, jobID uint) error {
	affected, err := s.jobRepo.Reset(jobID)
	if err != nil {
		return err
	}
	if affected == 0 {
		job, err := s.jobRepo.GetByID(jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return ErrAssetSyncJobNotFound
		}
		return ErrAssetSyncJobNotFailed
	}
	if s.queueClient.Enabled() {
		s.Schedule(jobID, 0)
		return nil
	}
	return s.Run(ctx, jobID)
}

// ListForAdmin 管理端查询
func (s *AssetSyncService) ListForAdmin(filter repository.AssetSyncJobListFilter) ([]models.AssetSyncJob, int64, error) {
	return s.jobRepo.ListAdmin(filter)
}
