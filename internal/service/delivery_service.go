package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"gorm.io/gorm"
)

const assetSyncRetryDelay = 30 * time.Second

// DeliveryService 送达/回收生命周期引擎
// 所有状态迁移都是带前置状态的条件更新，受影响行数为 0 即视为非法迁移。
type DeliveryService struct {
	itemRepo      repository.DeliveryItemRepository
	assetRepo     repository.AssetRepository
	userRepo      repository.UserRepository
	jobRepo       repository.AssetSyncJobRepository
	assetSync     *AssetSyncService
	audit         *AuditService
	retryAttempts int
	retryBackoff  time.Duration
	gpsMaxMeters  float64
	now           func() time.Time
}

// NewDeliveryService 创建生命周期服务
func NewDeliveryService(
	itemRepo repository.DeliveryItemRepository,
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
	jobRepo repository.AssetSyncJobRepository,
	assetSync *AssetSyncService,
	audit *AuditService,
	retryAttempts int,
) *DeliveryService {
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &DeliveryService{
		itemRepo:      itemRepo,
		assetRepo:     assetRepo,
		userRepo:      userRepo,
		jobRepo:       jobRepo,
		assetSync:     assetSync,
		audit:         audit,
		retryAttempts: retryAttempts,
		retryBackoff:  200 * time.Millisecond,
		now:           time.Now,
	}
}

// SetGPSMaxDistance 完工定位距工地超过该值时记录告警，0 表示不检查
func (s *DeliveryService) SetGPSMaxDistance(meters int) {
	if meters < 0 {
		meters = 0
	}
	s.gpsMaxMeters = float64(meters)
}

// AssignDeliveryInput 安排送达
type AssignDeliveryInput struct {
	ItemID      uint
	DriverID    uint
	PlannedDate time.Time
	AssetID     uint
}

// PlanReturnInput 安排回收
type PlanReturnInput struct {
	ItemID      uint
	DriverID    uint
	PlannedDate time.Time
}

// CompletionResult 完工结果；SideEffectErr 非空表示资产同步失败但完工已生效
type CompletionResult struct {
	Item          *models.DeliveryItem `json:"item"`
	AssetSynced   bool                 `json:"asset_synced"`
	SideEffectErr error                `json:"-"`
}

// GetItem 获取交付行
func (s *DeliveryService) GetItem(itemID uint) (*models.DeliveryItem, error) {
	item, err := s.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrDeliveryItemNotFound
	}
	return item, nil
}

// GetItemForDriver 司机只能查看分配给自己的交付行
func (s *DeliveryService) GetItemForDriver(actor Session, itemID uint) (*models.DeliveryItem, error) {
	item, err := s.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.Delivery.AssignedTo(actor.UserID) && !item.Return.AssignedTo(actor.UserID) {
		return nil, ErrNotAssignedDriver
	}
	return item, nil
}

// ListForDriver 司机的全部交付行
func (s *DeliveryService) ListForDriver(driverID uint) ([]models.DeliveryItem, error) {
	return s.itemRepo.ListByDriver(driverID)
}

// ListForAdmin 管理端分页查询
func (s *DeliveryService) ListForAdmin(filter repository.DeliveryItemListFilter) ([]models.DeliveryItem, int64, error) {
	return s.itemRepo.ListAdmin(filter)
}

// AssignDelivery 后台安排送达：司机、日期、设备，UNASSIGNED/PLANNED -> PLANNED
func (s *DeliveryService) AssignDelivery(ctx context.Context, actor Session, input AssignDeliveryInput) (*models.DeliveryItem, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if input.PlannedDate.IsZero() {
		return nil, ErrInvalidPlannedDate
	}
	item, err := s.GetItem(input.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDriver(input.DriverID); err != nil {
		return nil, err
	}

	var asset *models.Asset
	if input.AssetID != 0 {
		asset, err = s.assetRepo.GetByID(input.AssetID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, ErrAssetNotFound
		}
	}

	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patch := repository.LegPatch{
			Status:      constants.DeliveryStatusPlanned,
			DriverID:    &input.DriverID,
			PlannedDate: &input.PlannedDate,
		}
		if asset != nil {
			patch.AssetID = &asset.ID
		}
		affected, err := s.itemRepo.WithTx(tx).UpdateLegIfStatus(item.ID, repository.LegGuard{
			Direction: constants.DirectionDelivery,
			From:      []string{constants.DeliveryStatusUnassigned, constants.DeliveryStatusPlanned},
		}, patch)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInvalidTransition
		}
		if asset == nil || sameAsset(item.AssetID, asset.ID) {
			return nil
		}

		assets := s.assetRepo.WithTx(tx)
		affected, err = assets.UpdateStatusIf(asset.ID, []string{constants.AssetStatusAvailable}, constants.AssetStatusReserved)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAssetUnavailable
		}
		if item.AssetID != nil {
			// 改派设备时释放原预留
			if _, err := assets.UpdateStatusIf(*item.AssetID, []string{constants.AssetStatusReserved}, constants.AssetStatusAvailable); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: constants.AuditDeliveryAssigned,
		TargetType: "delivery_item",
		TargetID:   item.ID,
		Detail: models.JSON{
			"driver_id":    input.DriverID,
			"planned_date": input.PlannedDate.Format(time.RFC3339),
			"asset_id":     input.AssetID,
		},
	})
	return s.GetItem(item.ID)
}

// PlanReturn 后台安排回收，要求送达已完成
func (s *DeliveryService) PlanReturn(ctx context.Context, actor Session, input PlanReturnInput) (*models.DeliveryItem, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if input.PlannedDate.IsZero() {
		return nil, ErrInvalidPlannedDate
	}
	item, err := s.GetItem(input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Delivery.Status != constants.DeliveryStatusDelivered {
		return nil, ErrReturnBeforeDelivery
	}
	if err := s.ensureDriver(input.DriverID); err != nil {
		return nil, err
	}

	affected, err := s.itemRepo.UpdateLegIfStatus(item.ID, repository.LegGuard{
		Direction:        constants.DirectionReturn,
		From:             []string{constants.ReturnStatusNone, constants.ReturnStatusPlanned},
		RequireDelivered: true,
	}, repository.LegPatch{
		Status:      constants.ReturnStatusPlanned,
		DriverID:    &input.DriverID,
		PlannedDate: &input.PlannedDate,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: constants.AuditReturnPlanned,
		TargetType: "delivery_item",
		TargetID:   item.ID,
		Detail: models.JSON{
			"driver_id":    input.DriverID,
			"planned_date": input.PlannedDate.Format(time.RFC3339),
		},
	})
	return s.GetItem(item.ID)
}

// AdvanceToInTransit 司机出发：PLANNED -> IN_TRANSIT
func (s *DeliveryService) AdvanceToInTransit(ctx context.Context, actor Session, itemID uint, dir Direction) (*models.DeliveryItem, error) {
	spec, ok := directionSpecs[dir]
	if !ok {
		return nil, ErrInvalidDirection
	}
	item, err := s.checkDriverAction(actor, itemID, dir, spec.planned)
	if err != nil {
		return nil, err
	}

	now := s.now()
	affected, err := s.itemRepo.UpdateLegIfStatus(item.ID, repository.LegGuard{
		Direction:        dir.String(),
		From:             []string{spec.planned},
		RequireDelivered: dir == DirectionReturn,
		DriverID:         actor.UserID,
	}, repository.LegPatch{
		Status:    spec.inTransit,
		StartedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: spec.auditStarted,
		TargetType: "delivery_item",
		TargetID:   item.ID,
		Detail:     models.JSON{"direction": dir.String()},
	})
	return s.GetItem(item.ID)
}

// PrecheckCompletion 上传前的快速检查，避免为注定失败的请求上传文件
func (s *DeliveryService) PrecheckCompletion(actor Session, itemID uint, dir Direction) (*models.DeliveryItem, error) {
	spec, ok := directionSpecs[dir]
	if !ok {
		return nil, ErrInvalidDirection
	}
	return s.checkDriverAction(actor, itemID, dir, spec.inTransit)
}

// CompleteDirection 完工：IN_TRANSIT -> DELIVERED/RETURNED，写完工记录并同步设备状态
func (s *DeliveryService) CompleteDirection(ctx context.Context, actor Session, itemID uint, dir Direction, input CompletionInput) (*CompletionResult, error) {
	spec, ok := directionSpecs[dir]
	if !ok {
		return nil, ErrInvalidDirection
	}
	normalized, err := ValidateCompletion(input)
	if err != nil {
		return nil, err
	}
	item, err := s.checkDriverAction(actor, itemID, dir, spec.inTransit)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	record := s.buildCompletion(actor, item, normalized, completedAt)
	record.Status = spec.terminal
	if input.GPS != nil && normalized.GPS == nil {
		logger.Warnw("delivery_gps_fix_dropped", "item_id", itemID, "lat", input.GPS.Lat, "lng", input.GPS.Lng)
	}
	if d := record.GPSDistanceM; d != nil && s.gpsMaxMeters > 0 && *d > s.gpsMaxMeters {
		logger.Warnw("delivery_gps_far_from_site",
			"item_id", itemID,
			"direction", dir.String(),
			"distance_m", *d,
			"max_m", s.gpsMaxMeters,
		)
	}
	job, err := s.persistCompletion(ctx, actor, item, dir, record)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{}
	if job != nil {
		if syncErr := s.assetSync.Run(ctx, job.ID); syncErr != nil {
			logger.Warnw("delivery_asset_sync_failed",
				"item_id", item.ID,
				"direction", dir.String(),
				"asset_id", job.AssetID,
				"job_id", job.ID,
				"error", syncErr,
			)
			s.assetSync.Schedule(job.ID, assetSyncRetryDelay)
			result.SideEffectErr = fmt.Errorf("%w: %v", ErrSideEffectFailed, syncErr)
		} else {
			result.AssetSynced = true
		}
	}

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: spec.auditCompleted,
		TargetType: "delivery_item",
		TargetID:   item.ID,
		Detail: models.JSON{
			"direction":   dir.String(),
			"hour_meter":  record.HourMeter.String(),
			"fuel_level":  *record.FuelLevel,
			"person_name": record.PersonName,
			"conditions":  []string(record.Conditions),
			"photos":      len(record.Photos),
		},
	})

	updated, err := s.GetItem(item.ID)
	if err != nil {
		logger.Warnw("delivery_reload_after_complete_failed", "item_id", item.ID, "error", err)
		*item.Leg(dir.String()) = *record
		updated = item
	}
	result.Item = updated
	return result, nil
}

// persistCompletion 单事务写完工记录与 outbox；瞬时错误重试，条件更新保证重试安全
func (s *DeliveryService) persistCompletion(ctx context.Context, actor Session, item *models.DeliveryItem, dir Direction, record *models.DeliveryLeg) (*models.AssetSyncJob, error) {
	spec := dir.spec()
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		var job *models.AssetSyncJob
		err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			affected, err := s.itemRepo.WithTx(tx).UpdateLegIfStatus(item.ID, repository.LegGuard{
				Direction:        dir.String(),
				From:             []string{spec.inTransit},
				RequireDelivered: dir == DirectionReturn,
				DriverID:         actor.UserID,
			}, repository.LegPatch{
				Status:     spec.terminal,
				Completion: record,
			})
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrInvalidTransition
			}
			if item.AssetID == nil {
				return nil
			}
			job = &models.AssetSyncJob{
				ItemID:       item.ID,
				Direction:    dir.String(),
				AssetID:      *item.AssetID,
				TargetStatus: spec.assetTarget,
				State:        constants.AssetSyncPending,
			}
			return s.jobRepo.WithTx(tx).Create(job)
		})
		if err == nil {
			return job, nil
		}
		if errors.Is(err, ErrInvalidTransition) {
			if attempt > 1 && s.alreadyCompleted(item.ID, dir, record) {
				// 上一次提交已生效，仅响应丢失；outbox 由定时扫描处理
				return nil, nil
			}
			return nil, err
		}

		lastErr = err
		logger.Warnw("delivery_persist_completion_failed",
			"item_id", item.ID,
			"direction", dir.String(),
			"attempt", attempt,
			"error", err,
		)
		if attempt < s.retryAttempts {
			select {
			case <-ctx.Done():
				return nil, &PersistenceError{Attempts: attempt, Err: ctx.Err()}
			case <-time.After(s.retryBackoff * time.Duration(attempt)):
			}
		}
	}
	return nil, &PersistenceError{Attempts: s.retryAttempts, Err: lastErr}
}

func (s *DeliveryService) alreadyCompleted(itemID uint, dir Direction, record *models.DeliveryLeg) bool {
	current, err := s.itemRepo.GetByID(itemID)
	if err != nil || current == nil {
		return false
	}
	leg := current.Leg(dir.String())
	return leg.IsTerminal() &&
		leg.CompletedAt != nil && record.CompletedAt != nil &&
		leg.CompletedAt.Equal(*record.CompletedAt) &&
		leg.CompletedBy != nil && record.CompletedBy != nil &&
		*leg.CompletedBy == *record.CompletedBy
}

func (s *DeliveryService) buildCompletion(actor Session, item *models.DeliveryItem, input CompletionInput, at time.Time) *models.DeliveryLeg {
	completedAt := at.UTC().Truncate(time.Second)
	completedBy := actor.UserID
	hm := models.NewHourMeter(input.HourMeter.Decimal)
	record := &models.DeliveryLeg{
		CompletedAt:     &completedAt,
		CompletedBy:     &completedBy,
		CompletedByName: actor.Name,
		HourMeter:       &hm,
		FuelLevel:       input.FuelLevel,
		PersonName:      input.PersonName,
		Notes:           input.Notes,
		Conditions:      models.StringArray(input.Conditions),
		ConditionNotes:  input.ConditionNotes,
		Photos:          models.StringArray(append([]string{}, input.PhotoURLs...)),
		SignatureURL:    input.SignatureURL,
	}
	if input.GPS != nil {
		lat, lng := input.GPS.Lat, input.GPS.Lng
		record.GPSLat = &lat
		record.GPSLng = &lng
		record.GPSDistanceM = siteDistance(*input.GPS, item.Rental)
	}
	return record
}

// checkDriverAction 司机操作的公共前置检查
func (s *DeliveryService) checkDriverAction(actor Session, itemID uint, dir Direction, expected string) (*models.DeliveryItem, error) {
	item, err := s.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	leg := item.Leg(dir.String())
	if !leg.AssignedTo(actor.UserID) {
		return nil, ErrNotAssignedDriver
	}
	if dir == DirectionReturn && item.Delivery.Status != constants.DeliveryStatusDelivered {
		return nil, ErrReturnBeforeDelivery
	}
	if leg.Status != expected {
		return nil, ErrInvalidTransition
	}
	return item, nil
}

func (s *DeliveryService) ensureDriver(driverID uint) error {
	if driverID == 0 {
		return ErrDriverNotFound
	}
	driver, err := s.userRepo.GetByID(driverID)
	if err != nil {
		return err
	}
	if driver == nil || driver.Role != constants.RoleDriver || driver.Status != constants.UserStatusActive {
		return ErrDriverNotFound
	}
	return nil
}

func sameAsset(current *uint, id uint) bool {
	return current != nil && *current == id
}
