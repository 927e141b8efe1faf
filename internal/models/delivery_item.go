package models

import (
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
)

// DeliveryLeg 单个方向（送达或回收）的状态与完工记录
// 两个方向以不同前缀平铺在 delivery_items 表中。
type DeliveryLeg struct {
	Status          string      `gorm:"type:varchar(20);index;not null" json:"status"`
	DriverID        *uint       `gorm:"index" json:"driver_id,omitempty"`
	PlannedDate     *time.Time  `gorm:"index" json:"planned_date,omitempty"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CompletedBy     *uint       `json:"completed_by,omitempty"`
	CompletedByName string      `gorm:"type:varchar(100);not null;default:''" json:"completed_by_name,omitempty"`
	HourMeter       *HourMeter  `gorm:"type:decimal(12,1)" json:"hour_meter,omitempty"`
	FuelLevel       *int        `json:"fuel_level,omitempty"`
	PersonName      string      `gorm:"type:varchar(150);not null;default:''" json:"person_name,omitempty"`
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`
	Conditions      StringArray `gorm:"type:json" json:"conditions,omitempty"`
	ConditionNotes  string      `gorm:"type:text" json:"condition_notes,omitempty"`
	Photos          StringArray `gorm:"type:json" json:"photos,omitempty"`
	SignatureURL    string      `gorm:"type:varchar(500);not null;default:''" json:"signature_url,omitempty"`
	GPSLat          *float64    `json:"gps_lat,omitempty"`
	GPSLng          *float64    `json:"gps_lng,omitempty"`
	GPSDistanceM    *float64    `json:"gps_distance_m,omitempty"`
}

// IsTerminal 是否已完成（DELIVERED / RETURNED）
func (l DeliveryLeg) IsTerminal() bool {
	return l.Status == constants.DeliveryStatusDelivered || l.Status == constants.ReturnStatusReturned
}

// AssignedTo 是否分配给指定司机
func (l DeliveryLeg) AssignedTo(driverID uint) bool {
	return l.DriverID != nil && *l.DriverID == driverID
}

// CompletionRecord 只读的完工记录视图
type CompletionRecord struct {
	CompletedAt     time.Time   `json:"completed_at"`
	CompletedBy     uint        `json:"completed_by"`
	CompletedByName string      `json:"completed_by_name"`
	HourMeter       HourMeter   `json:"hour_meter"`
	FuelLevel       int         `json:"fuel_level"`
	PersonName      string      `json:"person_name"`
	Notes           string      `json:"notes"`
	Conditions      StringArray `json:"conditions"`
	ConditionNotes  string      `json:"condition_notes"`
	Photos          StringArray `json:"photos"`
	SignatureURL    string      `json:"signature_url"`
	GPSLat          *float64    `json:"gps_lat,omitempty"`
	GPSLng          *float64    `json:"gps_lng,omitempty"`
	GPSDistanceM    *float64    `json:"gps_distance_m,omitempty"`
}

// Completion 返回完工记录，未完成时返回 nil
func (l DeliveryLeg) Completion() *CompletionRecord {
	if !l.IsTerminal() || l.CompletedAt == nil {
		return nil
	}
	rec := &CompletionRecord{
		CompletedAt:     *l.CompletedAt,
		CompletedByName: l.CompletedByName,
		PersonName:      l.PersonName,
		Notes:           l.Notes,
		Conditions:      l.Conditions,
		ConditionNotes:  l.ConditionNotes,
		Photos:          l.Photos,
		SignatureURL:    l.SignatureURL,
		GPSLat:          l.GPSLat,
		GPSLng:          l.GPSLng,
		GPSDistanceM:    l.GPSDistanceM,
	}
	if l.CompletedBy != nil {
		rec.CompletedBy = *l.CompletedBy
	}
	if l.HourMeter != nil {
		rec.HourMeter = *l.HourMeter
	}
	if l.FuelLevel != nil {
		rec.FuelLevel = *l.FuelLevel
	}
	return rec
}

// DeliveryItem 合同中的单台设备行，带送达与回收两条独立状态轨道
type DeliveryItem struct {
	ID             uint        `gorm:"primarykey" json:"id"`
	RentalID       uint        `gorm:"index;not null" json:"rental_id"`
	ProposalItemID *uint       `gorm:"index" json:"proposal_item_id,omitempty"`
	MachineLabel   string      `gorm:"type:varchar(200);not null;default:''" json:"machine_label"`
	AssetID        *uint       `gorm:"index" json:"asset_id,omitempty"`
	Delivery       DeliveryLeg `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery"`
	Return         DeliveryLeg `gorm:"embedded;embeddedPrefix:return_" json:"return"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Rental *Rental `gorm:"foreignKey:RentalID" json:"rental,omitempty"`
	Asset  *Asset  `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

// TableName 指定表名
func (DeliveryItem) TableName() string {
	return "delivery_items"
}

// Leg 按方向取出对应轨道，方向非法时返回 nil
func (d *DeliveryItem) Leg(direction string) *DeliveryLeg {
	switch direction {
	case constants.DirectionDelivery:
		return &d.Delivery
	case constants.DirectionReturn:
		return &d.Return
	default:
		return nil
	}
}
