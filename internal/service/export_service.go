package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheetName = "Completions"
	exportPageSize  = 200
	exportMaxRows   = 50000
)

var exportHeaders = []string{
	"Item ID", "Rental No", "Customer", "Machine", "Direction", "Status",
	"Completed At", "Completed By", "Hour Meter", "Fuel %", "Person",
	"Conditions", "Condition Notes", "Notes", "Photos", "Signature",
	"GPS Lat", "GPS Lng", "Distance (m)",
}

// ExportService 完工记录导出
type ExportService struct {
	itemRepo repository.DeliveryItemRepository
	loc      *time.Location
}

// NewExportService 创建导出服务
func NewExportService(itemRepo repository.DeliveryItemRepository, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{itemRepo: itemRepo, loc: loc}
}

// ExportRow 导出的一行：一个已完成的方向
type ExportRow struct {
	Item      models.DeliveryItem
	Direction Direction
	Record    *models.CompletionRecord
}

// CollectRows 按过滤条件收集所有已完成方向
func (s *ExportService) CollectRows(filter repository.DeliveryItemListFilter) ([]ExportRow, error) {
	filter.CompletedOnly = true
	filter.PageSize = exportPageSize
	rows := make([]ExportRow, 0)
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.itemRepo.ListAdmin(filter)
		if err != nil {
			return nil, err
		}
		for i := range items {
			for _, dir := range []Direction{DirectionDelivery, DirectionReturn} {
				record := items[i].Leg(dir.String()).Completion()
				if record == nil || !inRange(record.CompletedAt, filter.CompletedFrom, filter.CompletedTo) {
					continue
				}
				rows = append(rows, ExportRow{Item: items[i], Direction: dir, Record: record})
			}
		}
		if len(items) == 0 || int64(page*exportPageSize) >= total || len(rows) >= exportMaxRows {
			break
		}
	}
	return rows, nil
}

// ExportXLSX 生成完工记录表格
func (s *ExportService) ExportXLSX(filter repository.DeliveryItemListFilter) (*bytes.Buffer, error) {
	rows, err := s.CollectRows(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"305496"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(exportSheetName, cell, cell, headerStyle)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	_ = f.SetColWidth(exportSheetName, "A", lastCol, 18)
	_ = f.SetPanes(exportSheetName, &excelize.Panes{Freeze: true, Split: false, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, row := range rows {
		for col, value := range s.rowValues(row) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

func (s *ExportService) rowValues(row ExportRow) []interface{} {
	rec := row.Record
	leg := row.Item.Leg(row.Direction.String())
	rentalNo, customer := "", ""
	if row.Item.Rental != nil {
		rentalNo = row.Item.Rental.RentalNo
		customer = row.Item.Rental.CustomerName
	}
	return []interface{}{
		row.Item.ID,
		rentalNo,
		customer,
		row.Item.MachineLabel,
		row.Direction.String(),
		leg.Status,
		rec.CompletedAt.In(s.loc).Format("2006-01-02 15:04"),
		rec.CompletedByName,
		rec.HourMeter.String(),
		rec.FuelLevel,
		rec.PersonName,
		strings.Join(rec.Conditions, ", "),
		rec.ConditionNotes,
		rec.Notes,
		len(rec.Photos),
		rec.SignatureURL != "",
		floatCell(rec.GPSLat),
		floatCell(rec.GPSLng),
		floatCell(rec.GPSDistanceM),
	}
}

// ExportFilename 导出文件名
func (s *ExportService) ExportFilename(now time.Time) string {
	return fmt.Sprintf("completions_%s.xlsx", now.In(s.loc).Format("20060102_1504"))
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
