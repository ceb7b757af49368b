package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/models"

	"gorm.io/gorm"
)

// PaymentListFilter 支付列表查询条件
type PaymentListFilter struct {
	UserID        uint
	FromAccountID string
	PaymentType   string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	PageSize      int
}

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	UpdateStatus(id uint, fromStatuses []string, toStatus string, updates map[string]interface{}) (int64, error)
	GetByID(id uint) (*models.Payment, error)
	GetByPaymentNo(paymentNo string) (*models.Payment, error)
	CountCompletedSince(fromAccountID string, since time.Time) (int64, error)
	List(filter PaymentListFilter) ([]models.Payment, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormPaymentRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付记录
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// UpdateStatus 按当前状态条件更新支付状态，返回受影响行数。
// 状态机约束通过条件更新落到数据库层，避免并发转移竞争。
func (r *GormPaymentRepository) UpdateStatus(id uint, fromStatuses []string, toStatus string, updates map[string]interface{}) (int64, error) {
	if len(updates) == 0 {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	updates["updated_at"] = time.Now()
	query := r.db.Model(&models.Payment{}).Where("id = ?", id)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", fromStatuses)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByPaymentNo 根据支付单号获取支付记录
func (r *GormPaymentRepository) GetByPaymentNo(paymentNo string) (*models.Payment, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("payment_no = ?", paymentNo).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// CountCompletedSince 统计账户在指定时间之后创建且已完成的支付数
func (r *GormPaymentRepository) CountCompletedSince(fromAccountID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("from_account_id = ? AND status = ? AND created_at > ?",
			fromAccountID,
			constants.PaymentStatusCompleted,
			since,
		).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List 查询支付列表
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.FromAccountID != "" {
		query = query.Where("from_account_id = ?", filter.FromAccountID)
	}
	if filter.PaymentType != "" {
		query = query.Where("payment_type = ?", filter.PaymentType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
