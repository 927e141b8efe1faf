package repository

import (
	"errors"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"gorm.io/gorm"
)

// AssetSyncJobRepository outbox 数据访问接口
type AssetSyncJobRepository interface {
	Create(job *models.AssetSyncJob) error
	GetByID(id uint) (*models.AssetSyncJob, error)
	MarkDone(id uint, at time.Time) error
	MarkAttemptFailed(id uint, reason string, maxAttempts int) error
	MarkSuperseded(id uint, reason string, at time.Time) error
	HasNewerDone(assetID, jobID uint) (bool, error)
	ListDue(limit, maxAttempts int) ([]models.AssetSyncJob, error)
	ListAdmin(filter AssetSyncJobListFilter) ([]models.AssetSyncJob, int64, error)
	Reset(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormAssetSyncJobRepository
}

// GormAssetSyncJobRepository GORM 实现
type GormAssetSyncJobRepository struct {
	db *gorm.DB
}

// NewAssetSyncJobRepository 创建 outbox 仓库
func NewAssetSyncJobRepository(db *gorm.DB) *GormAssetSyncJobRepository {
	return &GormAssetSyncJobRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAssetSyncJobRepository) WithTx(tx *gorm.DB) *GormAssetSyncJobRepository {
	if tx == nil {
		return r
	}
	return &GormAssetSyncJobRepository{db: tx}
}

// Create 写入同步任务
func (r *GormAssetSyncJobRepository) Create(job *models.AssetSyncJob) error {
	return r.db.Create(job).Error
}

// GetByID 获取同步任务
func (r *GormAssetSyncJobRepository) GetByID(id uint) (*models.AssetSyncJob, error) {
	var job models.AssetSyncJob
	if err := r.db.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// MarkDone 标记完成
func (r *GormAssetSyncJobRepository) MarkDone(id uint, at time.Time) error {
	return r.db.Model(&models.AssetSyncJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":      constants.AssetSyncDone,
		"done_at":    at,
		"last_error": "",
		"attempts":   gorm.Expr("attempts + 1"),
	}).Error
}

// MarkAttemptFailed 记录一次失败，超过上限后置为 failed
func (r *GormAssetSyncJobRepository) MarkAttemptFailed(id uint, reason string, maxAttempts int) error {
	state := gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END", maxAttempts, constants.AssetSyncFailed, constants.AssetSyncPending)
	return r.db.Model(&models.AssetSyncJob{}).Where("id = ? AND state = ?", id, constants.AssetSyncPending).Updates(map[string]interface{}{
		"state":      state,
		"last_error": reason,
		"attempts":   gorm.Expr("attempts + 1"),
	}).Error
}

// MarkSuperseded 任务已过期，不再执行
func (r *GormAssetSyncJobRepository) MarkSuperseded(id uint, reason string, at time.Time) error {
	return r.db.Model(&models.AssetSyncJob{}).Where("id = ? AND state = ?", id, constants.AssetSyncPending).Updates(map[string]interface{}{
		"state":      constants.AssetSyncSuperseded,
		"done_at":    at,
		"last_error": reason,
	}).Error
}

// HasNewerDone 同一设备是否已有更晚创建的任务执行完成
func (r *GormAssetSyncJobRepository) HasNewerDone(assetID, jobID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.AssetSyncJob{}).
		Where("asset_id = ? AND id > ? AND state = ?", assetID, jobID, constants.AssetSyncDone).
		Count(&count).Error
	return count > 0, err
}

// ListDue 待补偿的任务，按创建顺序
func (r *GormAssetSyncJobRepository) ListDue(limit, maxAttempts int) ([]models.AssetSyncJob, error) {
	jobs := make([]models.AssetSyncJob, 0)
	query := r.db.Where("state = ?", constants.AssetSyncPending)
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListAdmin 管理端查询
func (r *GormAssetSyncJobRepository) ListAdmin(filter AssetSyncJobListFilter) ([]models.AssetSyncJob, int64, error) {
	query := r.db.Model(&models.AssetSyncJob{})
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.ItemID != 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	jobs := make([]models.AssetSyncJob, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Reset 将 failed 任务重新置为 pending 并清零计数
func (r *GormAssetSyncJobRepository) Reset(id uint) (int64, error) {
	result := r.db.Model(&models.AssetSyncJob{}).
		Where("id = ? AND state = ?", id, constants.AssetSyncFailed).
		Updates(map[string]interface{}{"state": constants.AssetSyncPending, "attempts": 0})
	return result.RowsAffected, result.Error
}
