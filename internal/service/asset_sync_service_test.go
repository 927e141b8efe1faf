package service

import (
	"context"
	"errors"
	"testing"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchableAssetRepo 设备库可在测试中途恢复
type switchableAssetRepo struct {
	repository.AssetRepository
	down bool
}

func (r *switchableAssetRepo) UpdateStatus(id uint, status string) (int64, error) {
	if r.down {
		return 0, errors.New("fleet store unavailable")
	}
	return r.AssetRepository.UpdateStatus(id, status)
}

func loadJobs(t *testing.T, f *deliveryFixture) []models.AssetSyncJob {
	t.Helper()
	var jobs []models.AssetSyncJob
	require.NoError(t, f.db.Order("id ASC").Find(&jobs).Error)
	return jobs
}

func TestSweepDoesNotReplayDeliverySyncAfterReturn(t *testing.T) {
	f := setupDeliveryServiceTest(t, nil)
	ctx := context.Background()
	fleet := &switchableAssetRepo{AssetRepository: f.assetRepo, down: true}
	f.svc.assetSync = NewAssetSyncService(f.jobRepo, fleet, f.itemRepo, f.svc.audit, queue.NewClient(nil), 5, 10)

	asset := f.seedAsset(t, constants.AssetStatusReserved)
	item := f.seedItem(t, func(item *models.DeliveryItem) {
		f.plannedForDriver(asset)(item)
		item.Delivery.Status = constants.DeliveryStatusInTransit
	})

	result, err := f.svc.CompleteDirection(ctx, f.driver, item.ID, DirectionDelivery, validCompletion())
	require.NoError(t, err)
	require.ErrorIs(t, result.SideEffectErr, ErrSideEffectFailed)

	fleet.down = false
	_, err = f.svc.PlanReturn(ctx, f.staff, PlanReturnInput{ItemID: item.ID, DriverID: f.driver.UserID, PlannedDate: f.now})
	require.NoError(t, err)
	_, err = f.svc.AdvanceToInTransit(ctx, f.driver, item.ID, DirectionReturn)
	require.NoError(t, err)
	input := validCompletion()
	input.HourMeter = hourMeter("1302")
	result, err = f.svc.CompleteDirection(ctx, f.driver, item.ID, DirectionReturn, input)
	require.NoError(t, err)
	require.True(t, result.AssetSynced)

	stored, err := f.assetRepo.GetByID(asset.ID)
	require.NoError(t, err)
	require.Equal(t, constants.AssetStatusAvailable, stored.Status)

	handled, err := f.svc.assetSync.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)

	stored, err = f.assetRepo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssetStatusAvailable, stored.Status, "old delivery sync must not rent the returned asset again")

	jobs := loadJobs(t, f)
	require.Len(t, jobs, 2)
	assert.Equal(t, constants.DirectionDelivery, jobs[0].Direction)
	assert.Equal(t, constants.AssetSyncSuperseded, jobs[0].State)
	assert.Equal(t, "newer_sync_applied", jobs[0].LastError)
	assert.Equal(t, constants.AssetSyncDone, jobs[1].State)

	// 再次扫描无事可做
	handled, err = f.svc.assetSync.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestRetryDoesNotReleaseAssetHeldByAnotherItem(t *testing.T) {
	f := setupDeliveryServiceTest(t, nil)
	ctx := context.Background()
	asset := f.seedAsset(t, constants.AssetStatusReserved)

	returned := f.seedItem(t, func(item *models.DeliveryItem) {
		f.plannedForDriver(asset)(item)
		item.Delivery.Status = constants.DeliveryStatusDelivered
		item.Return.Status = constants.ReturnStatusReturned
	})
	// 设备已被手工释放并分配给新的交付行
	f.seedItem(t, f.plannedForDriver(asset))

	job := &models.AssetSyncJob{
		ItemID:       returned.ID,
		Direction:    constants.DirectionReturn,
		AssetID:      asset.ID,
		TargetStatus: constants.AssetStatusAvailable,
		State:        constants.AssetSyncFailed,
		Attempts:     5,
		LastError:    "fleet store unavailable",
	}
	require.NoError(t, f.db.Create(job).Error)

	require.NoError(t, f.svc.assetSync.Retry(ctx, job.ID))

	stored, err := f.assetRepo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssetStatusReserved, stored.Status)

	jobs := loadJobs(t, f)
	require.Len(t, jobs, 1)
	assert.Equal(t, constants.AssetSyncSuperseded, jobs[0].State)
	assert.Equal(t, "asset_held_by_other_item", jobs[0].LastError)

	assert.ErrorIs(t, f.svc.assetSync.Retry(ctx, job.ID), ErrAssetSyncJobNotFailed)
}

func TestRunSkipsJobWhenItemSwappedAsset(t *testing.T) {
	f := setupDeliveryServiceTest(t, nil)
	ctx := context.Background()
	oldAsset := f.seedAsset(t, constants.AssetStatusAvailable)
	newAsset := f.seedAsset(t, constants.AssetStatusRented)
	item := f.seedItem(t, func(item *models.DeliveryItem) {
		f.plannedForDriver(newAsset)(item)
		item.Delivery.Status = constants.DeliveryStatusDelivered
	})

	job := &models.AssetSyncJob{
		ItemID:       item.ID,
		Direction:    constants.DirectionDelivery,
		AssetID:      oldAsset.ID,
		TargetStatus: constants.AssetStatusRented,
		State:        constants.AssetSyncPending,
	}
	require.NoError(t, f.db.Create(job).Error)

	require.NoError(t, f.svc.assetSync.Run(ctx, job.ID))

	stored, err := f.assetRepo.GetByID(oldAsset.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AssetStatusAvailable, stored.Status)
	assert.Equal(t, constants.AssetSyncSuperseded, loadJobs(t, f)[0].State)
}
