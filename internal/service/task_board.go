package service

import (
	"sort"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
)

// TaskEntry 任务板上的一条任务（交付行的一个方向）
type TaskEntry struct {
	ItemID       uint       `json:"item_id"`
	Direction    Direction  `json:"direction"`
	Status       string     `json:"status"`
	PlannedDate  *time.Time `json:"planned_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	MachineLabel string     `json:"machine_label"`
	RentalNo     string     `json:"rental_no,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
	SiteAddress  string     `json:"site_address,omitempty"`
}

// TaskBoard 司机任务板
type TaskBoard struct {
	Date      string      `json:"date"`
	Today     []TaskEntry `json:"today"`
	Upcoming  []TaskEntry `json:"upcoming"`
	Completed []TaskEntry `json:"completed"`
	Overdue   []TaskEntry `json:"overdue"`
}

// Bucket 任务分组
type Bucket string

const (
	BucketNone      Bucket = ""
	BucketToday     Bucket = "today"
	BucketUpcoming  Bucket = "upcoming"
	BucketCompleted Bucket = "completed"
	BucketOverdue   Bucket = "overdue"
)

// ClassifyLeg 按日期与状态给单个方向分组；未规划的方向返回 BucketNone
// today 的时区决定日历日的比较口径。
func ClassifyLeg(today time.Time, leg models.DeliveryLeg) Bucket {
	switch leg.Status {
	case constants.DeliveryStatusUnassigned, constants.ReturnStatusNone, "":
		return BucketNone
	case constants.DeliveryStatusDelivered, constants.ReturnStatusReturned:
		return BucketCompleted
	case constants.DeliveryStatusInTransit:
		return BucketToday
	}
	if leg.PlannedDate == nil {
		return BucketToday
	}
	planned := calendarDay(*leg.PlannedDate, today.Location())
	day := calendarDay(today, today.Location())
	switch {
	case planned.Equal(day):
		return BucketToday
	case planned.After(day):
		return BucketUpcoming
	default:
		return BucketOverdue
	}
}

// BuildDriverTaskBoard 纯函数：相同输入得到相同输出，各分组互不相交
func BuildDriverTaskBoard(today time.Time, driverID uint, items []models.DeliveryItem) TaskBoard {
	board := TaskBoard{
		Date:      today.Format("2006-01-02"),
		Today:     []TaskEntry{},
		Upcoming:  []TaskEntry{},
		Completed: []TaskEntry{},
		Overdue:   []TaskEntry{},
	}
	for i := range items {
		item := &items[i]
		for _, dir := range []Direction{DirectionDelivery, DirectionReturn} {
			leg := item.Leg(dir.String())
			if !leg.AssignedTo(driverID) {
				continue
			}
			entry := newTaskEntry(item, dir, leg)
			switch ClassifyLeg(today, *leg) {
			case BucketToday:
				board.Today = append(board.Today, entry)
			case BucketUpcoming:
				board.Upcoming = append(board.Upcoming, entry)
			case BucketCompleted:
				board.Completed = append(board.Completed, entry)
			case BucketOverdue:
				board.Overdue = append(board.Overdue, entry)
			}
		}
	}
	sortByPlanned(board.Today)
	sortByPlanned(board.Upcoming)
	sortByPlanned(board.Overdue)
	sort.SliceStable(board.Completed, func(i, j int) bool {
		a, b := board.Completed[i], board.Completed[j]
		if ta, tb := timeOrZero(a.CompletedAt), timeOrZero(b.CompletedAt); !ta.Equal(tb) {
			return ta.After(tb)
		}
		return entryLess(a, b)
	})
	return board
}

func newTaskEntry(item *models.DeliveryItem, dir Direction, leg *models.DeliveryLeg) TaskEntry {
	entry := TaskEntry{
		ItemID:       item.ID,
		Direction:    dir,
		Status:       leg.Status,
		PlannedDate:  leg.PlannedDate,
		CompletedAt:  leg.CompletedAt,
		MachineLabel: item.MachineLabel,
	}
	if item.Rental != nil {
		entry.RentalNo = item.Rental.RentalNo
		entry.CustomerName = item.Rental.CustomerName
		entry.SiteAddress = item.Rental.SiteAddress
	}
	return entry
}

func sortByPlanned(entries []TaskEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ta, tb := timeOrZero(a.PlannedDate), timeOrZero(b.PlannedDate); !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return entryLess(a, b)
	})
}

func entryLess(a, b TaskEntry) bool {
	if a.ItemID != b.ItemID {
		return a.ItemID < b.ItemID
	}
	return a.Direction == DirectionDelivery && b.Direction == DirectionReturn
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
