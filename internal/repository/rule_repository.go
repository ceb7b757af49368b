package repository

import (
	"errors"

	"github.com/payguard-next/internal/models"

	"gorm.io/gorm"
)

// RuleListFilter 规则列表查询条件
type RuleListFilter struct {
	Enabled  *bool
	Page     int
	PageSize int
}

// RuleRepository 支付规则数据访问接口
type RuleRepository interface {
	Create(rule *models.PaymentRule) error
	Update(rule *models.PaymentRule) error
	Delete(id uint) error
	GetByID(id uint) (*models.PaymentRule, error)
	ListEnabledByPriority() ([]models.PaymentRule, error)
	List(filter RuleListFilter) ([]models.PaymentRule, int64, error)
}

// GormRuleRepository GORM 实现
type GormRuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository 创建规则仓库
func NewRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// Create 创建规则
func (r *GormRuleRepository) Create(rule *models.PaymentRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则
func (r *GormRuleRepository) Update(rule *models.PaymentRule) error {
	return r.db.Save(rule).Error
}

// Delete 删除规则
func (r *GormRuleRepository) Delete(id uint) error {
	return r.db.Delete(&models.PaymentRule{}, id).Error
}

// GetByID 根据 ID 获取规则
func (r *GormRuleRepository) GetByID(id uint) (*models.PaymentRule, error) {
	var rule models.PaymentRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListEnabledByPriority 获取启用规则，按优先级降序
func (r *GormRuleRepository) ListEnabledByPriority() ([]models.PaymentRule, error) {
	var rules []models.PaymentRule
	if err := r.db.Where("enabled = ?", true).
		Order("priority desc, id asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// List 查询规则列表
func (r *GormRuleRepository) List(filter RuleListFilter) ([]models.PaymentRule, int64, error) {
	query := r.db.Model(&models.PaymentRule{})
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rules []models.PaymentRule
	if err := query.Order("priority desc, id asc").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}
