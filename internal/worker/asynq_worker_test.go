package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/provider"
	"github.com/renthportal/renthportal-sub001/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB, string) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	uploadDir := t.TempDir()
	cfg := &config.Config{
		JWT:       config.JWTConfig{SecretKey: "worker-test-secret"},
		Storage:   config.StorageConfig{Driver: "local", LocalDir: uploadDir, PublicBaseURL: "/uploads"},
		Delivery:  config.DeliveryConfig{PersistRetryAttempts: 1},
		Reconcile: config.ReconcileConfig{BatchSize: 10, MaxAttempts: 3},
	}
	return NewConsumer(provider.NewContainer(cfg)), db, uploadDir
}

func mustTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

// seedPendingJob 造一条已完工交付行及其待同步任务；target 为 AVAILABLE 时按归还方向处理
func seedPendingJob(t *testing.T, db *gorm.DB, target string) (*models.Asset, *models.AssetSyncJob) {
	t.Helper()
	seq := time.Now().UnixNano()
	asset := &models.Asset{SerialNo: fmt.Sprintf("SN-%d", seq), Model: "JLG 450AJ", Status: constants.AssetStatusReserved}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("create asset failed: %v", err)
	}
	rental := &models.Rental{RentalNo: fmt.Sprintf("RNT-%d", seq), ProposalID: uint(seq % 1000000), CustomerName: "Kule Insaat"}
	if err := db.Create(rental).Error; err != nil {
		t.Fatalf("create rental failed: %v", err)
	}
	direction := constants.DirectionDelivery
	item := &models.DeliveryItem{
		RentalID:     rental.ID,
		MachineLabel: asset.Model,
		AssetID:      &asset.ID,
		Delivery:     models.DeliveryLeg{Status: constants.DeliveryStatusDelivered},
		Return:       models.DeliveryLeg{Status: constants.ReturnStatusNone},
	}
	if target == constants.AssetStatusAvailable {
		direction = constants.DirectionReturn
		item.Return.Status = constants.ReturnStatusReturned
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create delivery item failed: %v", err)
	}
	job := &models.AssetSyncJob{
		ItemID:       item.ID,
		Direction:    direction,
		AssetID:      asset.ID,
		TargetStatus: target,
		State:        constants.AssetSyncPending,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	return asset, job
}

func TestHandleAssetSyncAppliesTargetStatus(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	asset, job := seedPendingJob(t, db, constants.AssetStatusRented)

	if err := consumer.handleAssetSync(context.Background(), mustTask(t, queue.TaskAssetSync, queue.AssetSyncPayload{JobID: job.ID})); err != nil {
		t.Fatalf("handle asset sync failed: %v", err)
	}

	var gotAsset models.Asset
	if err := db.First(&gotAsset, asset.ID).Error; err != nil {
		t.Fatalf("reload asset failed: %v", err)
	}
	if gotAsset.Status != constants.AssetStatusRented {
		t.Fatalf("asset status want RENTED got %s", gotAsset.Status)
	}
	var gotJob models.AssetSyncJob
	if err := db.First(&gotJob, job.ID).Error; err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if gotJob.State != constants.AssetSyncDone {
		t.Fatalf("job state want done got %s", gotJob.State)
	}
}

func TestHandleAssetSyncSkipsMissingJob(t *testing.T) {
	consumer, _, _ := setupWorkerTest(t)
	if err := consumer.handleAssetSync(context.Background(), mustTask(t, queue.TaskAssetSync, queue.AssetSyncPayload{JobID: 999})); err != nil {
		t.Fatalf("missing job should not be retried, got %v", err)
	}
	if err := consumer.handleAssetSync(context.Background(), asynq.NewTask(queue.TaskAssetSync, []byte("{"))); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleAssetSyncSweepRunsPendingJobs(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	asset, _ := seedPendingJob(t, db, constants.AssetStatusAvailable)

	if err := consumer.handleAssetSyncSweep(context.Background(), queue.NewAssetSyncSweepTask()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	var gotAsset models.Asset
	if err := db.First(&gotAsset, asset.ID).Error; err != nil {
		t.Fatalf("reload asset failed: %v", err)
	}
	if gotAsset.Status != constants.AssetStatusAvailable {
		t.Fatalf("asset status want AVAILABLE got %s", gotAsset.Status)
	}
}

func TestHandleUploadCleanupRemovesObjects(t *testing.T) {
	consumer, _, uploadDir := setupWorkerTest(t)
	key := "delivery/7/1700000000000_0.png"
	path := filepath.Join(uploadDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}

	payload := queue.UploadCleanupPayload{ItemID: 7, Direction: constants.DirectionDelivery, Keys: []string{key}}
	if err := consumer.handleUploadCleanup(context.Background(), mustTask(t, queue.TaskUploadCleanup, payload)); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("orphan upload should be removed, stat err=%v", err)
	}
}

func TestHandleAuditRecordPersists(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	payload := queue.AuditRecordPayload{
		ActorID:    3,
		ActorName:  "Mehmet Sofor",
		ActionCode: constants.AuditDeliveryCompleted,
		TargetType: "delivery_item",
		TargetID:   11,
		RequestID:  "req-1",
		Detail:     map[string]interface{}{"direction": "delivery"},
	}
	if err := consumer.handleAuditRecord(context.Background(), mustTask(t, queue.TaskAuditRecord, payload)); err != nil {
		t.Fatalf("audit record failed: %v", err)
	}
	var logs []models.AuditLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("query audit logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].ActionCode != constants.AuditDeliveryCompleted || logs[0].RequestID != "req-1" {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}

	if err := consumer.handleAuditRecord(context.Background(), mustTask(t, queue.TaskAuditRecord, queue.AuditRecordPayload{})); err != nil {
		t.Fatalf("empty action should be skipped, got %v", err)
	}
}

func TestRegisterNilSafe(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	if err := consumer.handleAssetSync(context.Background(), nil); err != nil {
		t.Fatalf("nil consumer should be a no-op, got %v", err)
	}
}
