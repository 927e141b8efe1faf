package repository

import (
	"errors"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownDirection 方向既不是 delivery 也不是 return
var ErrUnknownDirection = errors.New("unknown delivery direction")

// legColumns 单个方向在 delivery_items 中的列名
type legColumns struct {
	Status          string
	DriverID        string
	PlannedDate     string
	StartedAt       string
	CompletedAt     string
	CompletedBy     string
	CompletedByName string
	HourMeter       string
	FuelLevel       string
	PersonName      string
	Notes           string
	Conditions      string
	ConditionNotes  string
	Photos          string
	SignatureURL    string
	GPSLat          string
	GPSLng          string
	GPSDistanceM    string
}

var deliveryLegColumns = legColumns{
	Status:          "delivery_status",
	DriverID:        "delivery_driver_id",
	PlannedDate:     "delivery_planned_date",
	StartedAt:       "delivery_started_at",
	CompletedAt:     "delivery_completed_at",
	CompletedBy:     "delivery_completed_by",
	CompletedByName: "delivery_completed_by_name",
	HourMeter:       "delivery_hour_meter",
	FuelLevel:       "delivery_fuel_level",
	PersonName:      "delivery_person_name",
	Notes:           "delivery_notes",
	Conditions:      "delivery_conditions",
	ConditionNotes:  "delivery_condition_notes",
	Photos:          "delivery_photos",
	SignatureURL:    "delivery_signature_url",
	GPSLat:          "delivery_gps_lat",
	GPSLng:          "delivery_gps_lng",
	GPSDistanceM:    "delivery_gps_distance_m",
}

var returnLegColumns = legColumns{
	Status:          "return_status",
	DriverID:        "return_driver_id",
	PlannedDate:     "return_planned_date",
	StartedAt:       "return_started_at",
	CompletedAt:     "return_completed_at",
	CompletedBy:     "return_completed_by",
	CompletedByName: "return_completed_by_name",
	HourMeter:       "return_hour_meter",
	FuelLevel:       "return_fuel_level",
	PersonName:      "return_person_name",
	Notes:           "return_notes",
	Conditions:      "return_conditions",
	ConditionNotes:  "return_condition_notes",
	Photos:          "return_photos",
	SignatureURL:    "return_signature_url",
	GPSLat:          "return_gps_lat",
	GPSLng:          "return_gps_lng",
	GPSDistanceM:    "return_gps_distance_m",
}

func columnsFor(direction string) (legColumns, error) {
	switch direction {
	case constants.DirectionDelivery:
		return deliveryLegColumns, nil
	case constants.DirectionReturn:
		return returnLegColumns, nil
	default:
		return legColumns{}, ErrUnknownDirection
	}
}

// LegPatch 条件更新时写入的字段，nil 字段不更新
type LegPatch struct {
	Status      string
	DriverID    *uint
	PlannedDate *time.Time
	StartedAt   *time.Time
	// Completion 非空时写入整条完工记录
	Completion *models.DeliveryLeg
	// AssetID 行级字段，分配送达时一并写入
	AssetID *uint
}

func (p LegPatch) columns(cols legColumns) map[string]interface{} {
	updates := map[string]interface{}{cols.Status: p.Status}
	if p.DriverID != nil {
		updates[cols.DriverID] = *p.DriverID
	}
	if p.PlannedDate != nil {
		updates[cols.PlannedDate] = *p.PlannedDate
	}
	if p.StartedAt != nil {
		updates[cols.StartedAt] = *p.StartedAt
	}
	if p.AssetID != nil {
		updates["asset_id"] = *p.AssetID
	}
	if c := p.Completion; c != nil {
		updates[cols.CompletedAt] = c.CompletedAt
		updates[cols.CompletedBy] = c.CompletedBy
		updates[cols.CompletedByName] = c.CompletedByName
		updates[cols.HourMeter] = c.HourMeter
		updates[cols.FuelLevel] = c.FuelLevel
		updates[cols.PersonName] = c.PersonName
		updates[cols.Notes] = c.Notes
		updates[cols.Conditions] = c.Conditions
		updates[cols.ConditionNotes] = c.ConditionNotes
		updates[cols.Photos] = c.Photos
		updates[cols.SignatureURL] = c.SignatureURL
		updates[cols.GPSLat] = c.GPSLat
		updates[cols.GPSLng] = c.GPSLng
		updates[cols.GPSDistanceM] = c.GPSDistanceM
	}
	return updates
}

// LegGuard 条件更新的前置条件
type LegGuard struct {
	Direction string
	From      []string
	// RequireDelivered 回收方向要求送达轨道已完成
	RequireDelivered bool
	// DriverID 非 0 时要求该方向分配给此司机
	DriverID uint
}

// DeliveryItemRepository 交付行数据访问接口
type DeliveryItemRepository interface {
	GetByID(id uint) (*models.DeliveryItem, error)
	ListByDriver(driverID uint) ([]models.DeliveryItem, error)
	ListAdmin(filter DeliveryItemListFilter) ([]models.DeliveryItem, int64, error)
	CreateBatch(items []models.DeliveryItem) error
	UpdateLegIfStatus(id uint, guard LegGuard, patch LegPatch) (int64, error)
	AssetHeldByOther(assetID, itemID uint) (bool, error)
	WithTx(tx *gorm.DB) *GormDeliveryItemRepository
}

// GormDeliveryItemRepository GORM 实现
type GormDeliveryItemRepository struct {
	db *gorm.DB
}

// NewDeliveryItemRepository 创建交付行仓库
func NewDeliveryItemRepository(db *gorm.DB) *GormDeliveryItemRepository {
	return &GormDeliveryItemRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryItemRepository) WithTx(tx *gorm.DB) *GormDeliveryItemRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryItemRepository{db: tx}
}

// GetByID 根据 ID 获取交付行（含租赁项目与设备）
func (r *GormDeliveryItemRepository) GetByID(id uint) (*models.DeliveryItem, error) {
	var item models.DeliveryItem
	if err := r.db.Preload("Rental").Preload("Asset").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByDriver 任一方向分配给该司机的交付行，按计划日期升序
func (r *GormDeliveryItemRepository) ListByDriver(driverID uint) ([]models.DeliveryItem, error) {
	items := make([]models.DeliveryItem, 0)
	err := r.db.Preload("Rental").
		Where("delivery_driver_id = ? OR return_driver_id = ?", driverID, driverID).
		Order("COALESCE(delivery_planned_date, return_planned_date) ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListAdmin 管理端分页查询
func (r *GormDeliveryItemRepository) ListAdmin(filter DeliveryItemListFilter) ([]models.DeliveryItem, int64, error) {
	query := r.db.Model(&models.DeliveryItem{})
	if filter.RentalID != 0 {
		query = query.Where("rental_id = ?", filter.RentalID)
	}
	if filter.DriverID != 0 {
		query = query.Where("delivery_driver_id = ? OR return_driver_id = ?", filter.DriverID, filter.DriverID)
	}
	if filter.DeliveryStatus != "" {
		query = query.Where("delivery_status = ?", filter.DeliveryStatus)
	}
	if filter.ReturnStatus != "" {
		query = query.Where("return_status = ?", filter.ReturnStatus)
	}
	if filter.CompletedOnly {
		query = query.Where("delivery_completed_at IS NOT NULL OR return_completed_at IS NOT NULL")
	}
	if filter.CompletedFrom != nil {
		query = query.Where("delivery_completed_at >= ? OR return_completed_at >= ?", *filter.CompletedFrom, *filter.CompletedFrom)
	}
	if filter.CompletedTo != nil {
		query = query.Where("delivery_completed_at <= ? OR return_completed_at <= ?", *filter.CompletedTo, *filter.CompletedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]models.DeliveryItem, 0)
	query = applyPagination(query.Preload("Rental"), filter.Page, filter.PageSize)
	if err := query.Order("id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CreateBatch 批量创建交付行
func (r *GormDeliveryItemRepository) CreateBatch(items []models.DeliveryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// UpdateLegIfStatus 仅当方向状态处于 guard.From 之一时更新，返回受影响行数
func (r *GormDeliveryItemRepository) UpdateLegIfStatus(id uint, guard LegGuard, patch LegPatch) (int64, error) {
	cols, err := columnsFor(guard.Direction)
	if err != nil {
		return 0, err
	}
	from := make([]interface{}, 0, len(guard.From))
	for _, s := range guard.From {
		from = append(from, s)
	}

	query := r.db.Model(&models.DeliveryItem{}).
		Where("id = ?", id).
		Where(clause.IN{Column: clause.Column{Name: cols.Status}, Values: from})
	if guard.RequireDelivered {
		query = query.Where(clause.Eq{Column: clause.Column{Name: deliveryLegColumns.Status}, Value: constants.DeliveryStatusDelivered})
	}
	if guard.DriverID != 0 {
		query = query.Where(clause.Eq{Column: clause.Column{Name: cols.DriverID}, Value: guard.DriverID})
	}

	result := query.Updates(patch.columns(cols))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AssetHeldByOther 设备是否被其它尚未回收的交付行占用（已安排、运输中或已送达）
func (r *GormDeliveryItemRepository) AssetHeldByOther(assetID, itemID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.DeliveryItem{}).
		Where("asset_id = ? AND id <> ?", assetID, itemID).
		Where(clause.IN{Column: clause.Column{Name: deliveryLegColumns.Status}, Values: []interface{}{
			constants.DeliveryStatusPlanned,
			constants.DeliveryStatusInTransit,
			constants.DeliveryStatusDelivered,
		}}).
		Where(clause.Neq{Column: clause.Column{Name: returnLegColumns.Status}, Value: constants.ReturnStatusReturned}).
		Count(&count).Error
	return count > 0, err
}
