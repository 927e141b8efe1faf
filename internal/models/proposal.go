package models

import "time"

// Proposal 报价单，签署后可转为租赁项目
type Proposal struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	ProposalNo   string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"proposal_no"`
	CustomerName string         `gorm:"type:varchar(200);not null" json:"customer_name"`
	Status       string         `gorm:"type:varchar(20);index;not null;default:'DRAFT'" json:"status"`
	SiteAddress  string         `gorm:"type:varchar(500);not null;default:''" json:"site_address"`
	SiteLat      *float64       `json:"site_lat,omitempty"`
	SiteLng      *float64       `json:"site_lng,omitempty"`
	SignedAt     *time.Time     `json:"signed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Items        []ProposalItem `gorm:"foreignKey:ProposalID" json:"items,omitempty"`
}

// TableName 指定表名
func (Proposal) TableName() string {
	return "proposals"
}

// ProposalItem 报价行（机型 + 数量）
type ProposalItem struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	ProposalID   uint       `gorm:"index;not null" json:"proposal_id"`
	MachineModel string     `gorm:"type:varchar(200);not null" json:"machine_model"`
	Quantity     int        `gorm:"not null;default:1" json:"quantity"`
	MonthlyPrice Money      `gorm:"type:decimal(20,2);not null;default:0" json:"monthly_price"`
	StartDate    *time.Time `json:"start_date,omitempty"`
}

// TableName 指定表名
func (ProposalItem) TableName() string {
	return "proposal_items"
}

// Rental 租赁项目
type Rental struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	RentalNo     string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"rental_no"`
	ProposalID   uint       `gorm:"uniqueIndex;not null" json:"proposal_id"`
	CustomerName string     `gorm:"type:varchar(200);not null" json:"customer_name"`
	SiteAddress  string     `gorm:"type:varchar(500);not null;default:''" json:"site_address"`
	SiteLat      *float64   `json:"site_lat,omitempty"`
	SiteLng      *float64   `json:"site_lng,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	CreatedBy    uint       `gorm:"not null;default:0" json:"created_by"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Rental) TableName() string {
	return "rentals"
}
