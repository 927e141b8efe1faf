//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.DeliveryItem{},
		&models.AssetSyncJob{},
		&models.Rental{},
		&models.Asset{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// 并发完工同一方向时只能有一个请求命中条件更新
func TestPostgresConcurrentCompletionSingleWinner(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDeliveryItemRepository(db)

	driverID := uint(11)
	item := &models.DeliveryItem{
		RentalID:     1,
		MachineLabel: "Genie GS-1932",
		Delivery: models.DeliveryLeg{
			Status:   constants.DeliveryStatusInTransit,
			DriverID: &driverID,
		},
		Return: models.DeliveryLeg{Status: constants.ReturnStatusNone},
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	guard := LegGuard{
		Direction: constants.DirectionDelivery,
		From:      []string{constants.DeliveryStatusInTransit},
		DriverID:  driverID,
	}

	const workers = 8
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			completedAt := time.Now().UTC()
			hourMeter := models.NewHourMeter(decimal.NewFromInt(int64(1000 + n)))
			fuel := 50
			patch := LegPatch{
				Status: constants.DeliveryStatusDelivered,
				Completion: &models.DeliveryLeg{
					CompletedAt:     &completedAt,
					CompletedBy:     &driverID,
					CompletedByName: "Ali Yilmaz",
					HourMeter:       &hourMeter,
					FuelLevel:       &fuel,
				},
			}
			affected, err := repo.UpdateLegIfStatus(item.ID, guard, patch)
			if err != nil {
				t.Errorf("update failed: %v", err)
				return
			}
			if affected == 1 {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	got, err := repo.GetByID(item.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Delivery.Status != constants.DeliveryStatusDelivered {
		t.Fatalf("unexpected status: %s", got.Delivery.Status)
	}
	if got.Return.Status != constants.ReturnStatusNone {
		t.Fatalf("return leg must stay untouched, got %s", got.Return.Status)
	}
}

// 回收方向在送达完成前不能推进
func TestPostgresReturnRequiresDelivered(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDeliveryItemRepository(db)

	driverID := uint(12)
	item := &models.DeliveryItem{
		RentalID:     2,
		MachineLabel: "JLG 450AJ",
		Delivery:     models.DeliveryLeg{Status: constants.DeliveryStatusInTransit},
		Return: models.DeliveryLeg{
			Status:   constants.ReturnStatusPlanned,
			DriverID: &driverID,
		},
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	now := time.Now().UTC()
	affected, err := repo.UpdateLegIfStatus(item.ID, LegGuard{
		Direction:        constants.DirectionReturn,
		From:             []string{constants.ReturnStatusPlanned},
		RequireDelivered: true,
		DriverID:         driverID,
	}, LegPatch{Status: constants.ReturnStatusInTransit, StartedAt: &now})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("return must not start before delivery completes")
	}
}
