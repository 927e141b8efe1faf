package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/models"

	"gorm.io/gorm"
)

// ProposalRepository 报价单与租赁项目数据访问接口
type ProposalRepository interface {
	GetProposal(id uint) (*models.Proposal, error)
	LockProposal(id uint) (*models.Proposal, error)
	CreateProposal(proposal *models.Proposal) error
	UpdateProposalStatusIf(id uint, from, to string) (int64, error)
	CreateRental(rental *models.Rental) error
	GetRental(id uint) (*models.Rental, error)
	NextRentalSeq(prefix string) (int, error)
	WithTx(tx *gorm.DB) *GormProposalRepository
}

// GormProposalRepository GORM 实现
type GormProposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository 创建报价单仓库
func NewProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProposalRepository) WithTx(tx *gorm.DB) *GormProposalRepository {
	if tx == nil {
		return r
	}
	return &GormProposalRepository{db: tx}
}

// GetProposal 获取报价单（含报价行）
func (r *GormProposalRepository) GetProposal(id uint) (*models.Proposal, error) {
	return r.findProposal(r.db, id)
}

// LockProposal 事务内加锁读取报价单
func (r *GormProposalRepository) LockProposal(id uint) (*models.Proposal, error) {
	return r.findProposal(lockForUpdate(r.db), id)
}

func (r *GormProposalRepository) findProposal(db *gorm.DB, id uint) (*models.Proposal, error) {
	var proposal models.Proposal
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).First(&proposal, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

// CreateProposal 创建报价单及报价行
func (r *GormProposalRepository) CreateProposal(proposal *models.Proposal) error {
	return r.db.Create(proposal).Error
}

// UpdateProposalStatusIf 条件更新报价单状态
func (r *GormProposalRepository) UpdateProposalStatusIf(id uint, from, to string) (int64, error) {
	result := r.db.Model(&models.Proposal{}).Where("id = ? AND status = ?", id, from).Update("status", to)
	return result.RowsAffected, result.Error
}

// CreateRental 创建租赁项目
func (r *GormProposalRepository) CreateRental(rental *models.Rental) error {
	return r.db.Create(rental).Error
}

// GetRental 获取租赁项目
func (r *GormProposalRepository) GetRental(id uint) (*models.Rental, error) {
	var rental models.Rental
	if err := r.db.First(&rental, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rental, nil
}

// NextRentalSeq 返回 prefix 下的下一个序号（prefix 形如 RNT-2026-）
func (r *GormProposalRepository) NextRentalSeq(prefix string) (int, error) {
	var last models.Rental
	err := r.db.Where("rental_no LIKE ?", prefix+"%").Order("rental_no DESC").Limit(1).Find(&last).Error
	if err != nil {
		return 0, err
	}
	if last.ID == 0 {
		return 1, nil
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(last.RentalNo, prefix))
	if err != nil {
		return 0, fmt.Errorf("parse rental no %q: %w", last.RentalNo, err)
	}
	return seq + 1, nil
}
