package repository

import (
	"errors"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/models"

	"gorm.io/gorm"
)

// AssetRepository 设备数据访问接口
type AssetRepository interface {
	GetByID(id uint) (*models.Asset, error)
	List(filter AssetListFilter) ([]models.Asset, int64, error)
	Create(asset *models.Asset) error
	UpdateStatus(id uint, status string) (int64, error)
	UpdateStatusIf(id uint, from []string, to string) (int64, error)
	WithTx(tx *gorm.DB) *GormAssetRepository
}

// GormAssetRepository GORM 实现
type GormAssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository 创建设备仓库
func NewAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAssetRepository) WithTx(tx *gorm.DB) *GormAssetRepository {
	if tx == nil {
		return r
	}
	return &GormAssetRepository{db: tx}
}

// GetByID 根据 ID 获取设备
func (r *GormAssetRepository) GetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// List 分页查询设备
func (r *GormAssetRepository) List(filter AssetListFilter) ([]models.Asset, int64, error) {
	query := r.db.Model(&models.Asset{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("serial_no LIKE ? OR model LIKE ?", like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	assets := make([]models.Asset, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id ASC").Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// Create 创建设备
func (r *GormAssetRepository) Create(asset *models.Asset) error {
	return r.db.Create(asset).Error
}

// UpdateStatus 单字段更新设备状态
func (r *GormAssetRepository) UpdateStatus(id uint, status string) (int64, error) {
	result := r.db.Model(&models.Asset{}).Where("id = ?", id).Update("status", status)
	return result.RowsAffected, result.Error
}

// UpdateStatusIf 仅当当前状态属于 from 时更新
func (r *GormAssetRepository) UpdateStatusIf(id uint, from []string, to string) (int64, error) {
	result := r.db.Model(&models.Asset{}).Where("id = ? AND status IN ?", id, from).Update("status", to)
	return result.RowsAffected, result.Error
}
