package service

import (
	"context"
	"strings"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/repository"
)

// AuditEntry 一条业务审计
type AuditEntry struct {
	Actor      Session
	ActionCode string
	TargetType string
	TargetID   uint
	Detail     models.JSON
}

// AuditService 审计服务，记录失败只记日志不影响业务
type AuditService struct {
	repo        repository.AuditLogRepository
	queueClient *queue.Client
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository, queueClient *queue.Client) *AuditService {
	return &AuditService{repo: repo, queueClient: queueClient}
}

// Record 异步写审计；队列不可用时同步写库
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || strings.TrimSpace(entry.ActionCode) == "" {
		return
	}
	payload := queue.AuditRecordPayload{
		ActorID:    entry.Actor.UserID,
		ActorName:  strings.TrimSpace(entry.Actor.Name),
		ActionCode: entry.ActionCode,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		RequestID:  RequestIDFromContext(ctx),
		Detail:     entry.Detail,
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueAuditRecord(payload)
		if err == nil {
			return
		}
		logger.Warnw("audit_enqueue_failed", "action_code", entry.ActionCode, "target_id", entry.TargetID, "error", err)
	}
	if err := s.Persist(payload); err != nil {
		logger.Warnw("audit_record_failed", "action_code", entry.ActionCode, "target_id", entry.TargetID, "error", err)
	}
}

// Persist 写入审计日志（worker 与同步路径共用）
func (s *AuditService) Persist(payload queue.AuditRecordPayload) error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.Create(&models.AuditLog{
		ActorID:    payload.ActorID,
		ActorName:  payload.ActorName,
		ActionCode: payload.ActionCode,
		TargetType: payload.TargetType,
		TargetID:   payload.TargetID,
		RequestID:  payload.RequestID,
		DetailJSON: models.JSON(payload.Detail),
		CreatedAt:  time.Now(),
	})
}

// ListForAdmin 管理端查询审计日志
func (s *AuditService) ListForAdmin(filter repository.AuditLogListFilter) ([]models.AuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, 0, nil
	}
	return s.repo.ListAdmin(filter)
}
