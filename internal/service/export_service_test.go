package service

import (
	"context"
	"testing"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSXWritesOneRowPerCompletedDirection(t *testing.T) {
	f := setupDeliveryServiceTest(t, nil)
	ctx := context.Background()
	done := f.seedItem(t, func(item *models.DeliveryItem) {
		f.plannedForDriver(nil)(item)
		item.Delivery.Status = constants.DeliveryStatusInTransit
	})
	f.seedItem(t, f.plannedForDriver(nil))

	input := validCompletion()
	input.Conditions = []string{constants.ConditionDamageA}
	input.ConditionNotes = "on tampon cizik"
	_, err := f.svc.CompleteDirection(ctx, f.driver, done.ID, DirectionDelivery, input)
	require.NoError(t, err)

	svc := NewExportService(repository.NewDeliveryItemRepository(f.db), time.UTC)
	rows, err := svc.CollectRows(repository.DeliveryItemListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, DirectionDelivery, rows[0].Direction)

	buf, err := svc.ExportXLSX(repository.DeliveryItemListFilter{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer book.Close()
	sheetRows, err := book.GetRows(exportSheetName)
	require.NoError(t, err)
	require.Len(t, sheetRows, 2)
	assert.Equal(t, exportHeaders[0], sheetRows[0][0])
	assert.Equal(t, "RNT-2026-0001", sheetRows[1][1])
	assert.Equal(t, "delivery", sheetRows[1][4])
	assert.Equal(t, "2026-03-10 09:30", sheetRows[1][6])
	assert.Equal(t, "1250.5", sheetRows[1][8])
	assert.Equal(t, constants.ConditionDamageA, sheetRows[1][11])
	assert.Equal(t, "on tampon cizik", sheetRows[1][12])

	from := f.now.Add(time.Hour)
	rows, err = svc.CollectRows(repository.DeliveryItemListFilter{CompletedFrom: &from})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "completions_20260310_0930.xlsx", svc.ExportFilename(f.now))
}
