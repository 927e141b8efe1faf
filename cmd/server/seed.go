package main

import (
	"fmt"
	"os"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultSeedPassword = "Renth!2026"

type seedSummary struct {
	Users     int
	Assets    int
	Proposals int
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入演示账号、设备与已签署报价单",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadRuntime(); err != nil {
				return err
			}
			if err := models.AutoMigrate(); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			password := os.Getenv("RP_SEED_PASSWORD")
			if password == "" {
				password = defaultSeedPassword
			}
			summary, err := seedDemoData(models.DB, password, time.Now())
			if err != nil {
				return err
			}
			logger.Infow("seed_done",
				"users", summary.Users,
				"assets", summary.Assets,
				"proposals", summary.Proposals,
			)
			return nil
		},
	}
}

// seedDemoData 幂等写入演示数据，已存在的记录保持不变
func seedDemoData(db *gorm.DB, password string, now time.Time) (seedSummary, error) {
	var summary seedSummary
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return summary, err
	}

	users := []models.User{
		{Username: "operasyon", DisplayName: "Operasyon Ekibi", Role: constants.RoleStaff},
		{Username: "sofor.ali", DisplayName: "Ali Yilmaz", Role: constants.RoleDriver, Phone: "+90 532 000 00 01"},
		{Username: "sofor.mehmet", DisplayName: "Mehmet Kaya", Role: constants.RoleDriver, Phone: "+90 532 000 00 02"},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		users[i].Status = constants.UserStatusActive
		res := db.Where("username = ?", users[i].Username).FirstOrCreate(&users[i])
		if res.Error != nil {
			return summary, fmt.Errorf("seed user %s: %w", users[i].Username, res.Error)
		}
		summary.Users += int(res.RowsAffected)
	}

	assets := []models.Asset{
		{SerialNo: "MKS-1001", Model: "Genie GS-1932", Category: "Makasli Platform"},
		{SerialNo: "MKS-1002", Model: "Genie GS-1932", Category: "Makasli Platform"},
		{SerialNo: "EKL-2001", Model: "JLG 450AJ", Category: "Eklemli Platform"},
		{SerialNo: "FRK-3001", Model: "Toyota 8FBE15", Category: "Forklift"},
	}
	for i := range assets {
		assets[i].Status = constants.AssetStatusAvailable
		res := db.Where("serial_no = ?", assets[i].SerialNo).FirstOrCreate(&assets[i])
		if res.Error != nil {
			return summary, fmt.Errorf("seed asset %s: %w", assets[i].SerialNo, res.Error)
		}
		summary.Assets += int(res.RowsAffected)
	}

	var existing int64
	if err := db.Model(&models.Proposal{}).Where("proposal_no = ?", "TKL-2026-0001").Count(&existing).Error; err != nil {
		return summary, err
	}
	if existing > 0 {
		return summary, nil
	}
	lat, lng := 41.0766, 29.0129
	signedAt := now
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	proposal := models.Proposal{
		ProposalNo:   "TKL-2026-0001",
		CustomerName: "Anadolu Insaat A.S.",
		Status:       constants.ProposalStatusSigned,
		SiteAddress:  "Levent Mah. Buyukdere Cad. No:185, Sisli / Istanbul",
		SiteLat:      &lat,
		SiteLng:      &lng,
		SignedAt:     &signedAt,
		Items: []models.ProposalItem{
			{MachineModel: "Genie GS-1932", Quantity: 2, MonthlyPrice: models.NewMoney(decimal.NewFromInt(18500)), StartDate: &startDate},
			{MachineModel: "JLG 450AJ", Quantity: 1, MonthlyPrice: models.NewMoney(decimal.NewFromInt(42000)), StartDate: &startDate},
		},
	}
	if err := db.Create(&proposal).Error; err != nil {
		return summary, fmt.Errorf("seed proposal: %w", err)
	}
	summary.Proposals++
	return summary, nil
}
