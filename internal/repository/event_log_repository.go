package repository

import (
	"github.com/payguard-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventLogRepository 生命周期事件落库接口
type EventLogRepository interface {
	Record(event *models.PaymentEvent) (bool, error)
	ListByPaymentID(paymentID uint) ([]models.PaymentEvent, error)
	CountByType(eventType string) (int64, error)
}

// GormEventLogRepository GORM 实现
type GormEventLogRepository struct {
	db *gorm.DB
}

// NewEventLogRepository 创建事件仓库
func NewEventLogRepository(db *gorm.DB) *GormEventLogRepository {
	return &GormEventLogRepository{db: db}
}

// Record 写入事件记录，按 event_id 幂等去重。
// 队列投递语义是至少一次，重复事件静默忽略并返回 false。
func (r *GormEventLogRepository) Record(event *models.PaymentEvent) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByPaymentID 查询支付的事件记录
func (r *GormEventLogRepository) ListByPaymentID(paymentID uint) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.Where("payment_id = ?", paymentID).
		Order("id asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountByType 按事件类型统计
func (r *GormEventLogRepository) CountByType(eventType string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.PaymentEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
