package worker

import (
	"context"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
)

func TestNewSchedulerRejectsInvalidSpec(t *testing.T) {
	consumer, _, _ := setupWorkerTest(t)
	if _, err := NewScheduler(config.ReconcileConfig{Cron: "every five minutes"}, consumer.AssetSyncService, queue.NewClient(nil)); err == nil {
		t.Fatalf("invalid cron spec should be rejected")
	}
	if _, err := NewScheduler(config.ReconcileConfig{}, nil, queue.NewClient(nil)); err == nil {
		t.Fatalf("nil asset sync service should be rejected")
	}
	s, err := NewScheduler(config.ReconcileConfig{}, consumer.AssetSyncService, queue.NewClient(nil))
	if err != nil {
		t.Fatalf("default spec should be accepted: %v", err)
	}
	if s.spec != defaultReconcileCron {
		t.Fatalf("spec want %q got %q", defaultReconcileCron, s.spec)
	}
}

func TestSchedulerTickSweepsInlineWithoutQueue(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	asset, job := seedPendingJob(t, db, constants.AssetStatusRented)

	s, err := NewScheduler(config.ReconcileConfig{Cron: "*/5 * * * *"}, consumer.AssetSyncService, queue.NewClient(nil))
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	s.Tick()

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

func TestSchedulerStartStop(t *testing.T) {
	consumer, _, _ := setupWorkerTest(t)
	s, err := NewScheduler(config.ReconcileConfig{}, consumer.AssetSyncService, queue.NewClient(nil))
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not return after cancel")
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
