package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"gorm.io/gorm"
)

// ProposalService 报价单转租赁项目
type ProposalService struct {
	proposalRepo repository.ProposalRepository
	itemRepo     repository.DeliveryItemRepository
	audit        *AuditService
	now          func() time.Time
}

// NewProposalService 创建报价单服务
func NewProposalService(proposalRepo repository.ProposalRepository, itemRepo repository.DeliveryItemRepository, audit *AuditService) *ProposalService {
	return &ProposalService{
		proposalRepo: proposalRepo,
		itemRepo:     itemRepo,
		audit:        audit,
		now:          time.Now,
	}
}

// TransferResult 转项目结果
type TransferResult struct {
	Rental *models.Rental        `json:"rental"`
	Items  []models.DeliveryItem `json:"items"`
}

// Get 获取报价单
func (s *ProposalService) Get(id uint) (*models.Proposal, error) {
	proposal, err := s.proposalRepo.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

// Create 录入报价单
func (s *ProposalService) Create(proposal *models.Proposal) error {
	if proposal == nil || strings.TrimSpace(proposal.CustomerName) == "" {
		return ErrValidation
	}
	if proposal.Status == "" {
		proposal.Status = constants.ProposalStatusDraft
	}
	return s.proposalRepo.CreateProposal(proposal)
}

// Transfer 已签署报价单转为租赁项目：生成项目编号，每台设备一条交付行
func (s *ProposalService) Transfer(ctx context.Context, actor Session, proposalID uint) (*TransferResult, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	result := &TransferResult{}
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposals := s.proposalRepo.WithTx(tx)
		proposal, err := proposals.LockProposal(proposalID)
		if err != nil {
			return err
		}
		if proposal == nil {
			return ErrProposalNotFound
		}
		switch proposal.Status {
		case constants.ProposalStatusSigned:
		case constants.ProposalStatusTransferred:
			return ErrProposalAlreadyTransferred
		default:
			return ErrProposalNotSigned
		}
		if len(proposal.Items) == 0 {
			return ErrProposalEmpty
		}

		now := s.now()
		prefix := fmt.Sprintf("%s-%d-", constants.RentalNoPrefix, now.Year())
		seq, err := proposals.NextRentalSeq(prefix)
		if err != nil {
			return err
		}
		rental := &models.Rental{
			RentalNo:     fmt.Sprintf("%s%04d", prefix, seq),
			ProposalID:   proposal.ID,
			CustomerName: proposal.CustomerName,
			SiteAddress:  proposal.SiteAddress,
			SiteLat:      proposal.SiteLat,
			SiteLng:      proposal.SiteLng,
			StartDate:    earliestStart(proposal.Items),
			CreatedBy:    actor.UserID,
		}
		if err := proposals.CreateRental(rental); err != nil {
			return err
		}

		items := buildDeliveryItems(rental.ID, proposal.Items)
		if err := s.itemRepo.WithTx(tx).CreateBatch(items); err != nil {
			return err
		}

		affected, err := proposals.UpdateProposalStatusIf(proposal.ID, constants.ProposalStatusSigned, constants.ProposalStatusTransferred)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrProposalAlreadyTransferred
		}
		result.Rental = rental
		result.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		ActionCode: constants.AuditProposalTransferred,
		TargetType: "proposal",
		TargetID:   proposalID,
		Detail: models.JSON{
			"rental_id": result.Rental.ID,
			"rental_no": result.Rental.RentalNo,
			"items":     len(result.Items),
		},
	})
	return result, nil
}

func buildDeliveryItems(rentalID uint, lines []models.ProposalItem) []models.DeliveryItem {
	items := make([]models.DeliveryItem, 0, len(lines))
	for i := range lines {
		line := lines[i]
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		for n := 1; n <= qty; n++ {
			lineID := line.ID
			label := line.MachineModel
			if qty > 1 {
				label = fmt.Sprintf("%s #%d", line.MachineModel, n)
			}
			items = append(items, models.DeliveryItem{
				RentalID:       rentalID,
				ProposalItemID: &lineID,
				MachineLabel:   label,
				Delivery:       models.DeliveryLeg{Status: constants.DeliveryStatusUnassigned},
				Return:         models.DeliveryLeg{Status: constants.ReturnStatusNone},
			})
		}
	}
	return items
}

func earliestStart(lines []models.ProposalItem) *time.Time {
	var earliest *time.Time
	for i := range lines {
		start := lines[i].StartDate
		if start == nil {
			continue
		}
		if earliest == nil || start.Before(*earliest) {
			t := *start
			earliest = &t
		}
	}
	return earliest
}
