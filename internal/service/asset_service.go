package service

import (
	"context"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"
)

var assetStatuses = map[string]struct{}{
	constants.AssetStatusAvailable:   {},
	constants.AssetStatusReserved:    {},
	constants.AssetStatusRented:      {},
	constants.AssetStatusMaintenance: {},
}

// AssetService 设备（车队）服务
type AssetService struct {
	repo  repository.AssetRepository
	audit *AuditService
}

// NewAssetService 创建设备服务
func NewAssetService(repo repository.AssetRepository, audit *AuditService) *AssetService {
	return &AssetService{repo: repo, audit: audit}
}

// List 分页查询设备
func (s *AssetService) List(filter repository.AssetListFilter) ([]models.Asset, int64, error) {
	return s.repo.List(filter)
}

// Create 录入设备
func (s *AssetService) Create(asset *models.Asset) error {
	if asset == nil || strings.TrimSpace(asset.SerialNo) == "" {
		return ErrValidation
	}
	if asset.Status == "" {
		asset.Status = constants.AssetStatusAvailable
	}
	if _, ok := assetStatuses[asset.Status]; !ok {
		return ErrInvalidAssetStatus
	}
	return s.repo.Create(asset)
}

// ChangeStatus 后台人工修正设备状态
func (s *AssetService) ChangeStatus(ctx context.Context, actor Session, assetID uint, status string) (*models.Asset, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := assetStatuses[status]; !ok {
		return nil, ErrInvalidAssetStatus
	}
	asset, err := s.repo.GetByID(assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	previous := asset.Status
	if _, err := s.repo.UpdateStatus(assetID, status); err != nil {
		return nil, err
	}
	asset.Status = status

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: constants.AuditAssetStatusChanged,
		TargetType: "asset",
		TargetID:   assetID,
		Detail: models.JSON{
			"from":   previous,
			"to":     status,
			"manual": true,
		},
	})
	return asset, nil
}
