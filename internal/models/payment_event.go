package models

import (
	"time"
)

// PaymentEvent 生命周期事件落库记录（消费侧幂等去重）
type PaymentEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`                  // 主键
	EventID    string    `gorm:"uniqueIndex;not null" json:"event_id"`  // 事件唯一ID
	EventType  string    `gorm:"index;not null" json:"event_type"`      // 事件类型
	PaymentID  uint      `gorm:"index" json:"payment_id"`               // 关联支付ID
	Payload    JSON      `gorm:"type:json" json:"payload"`              // 事件载荷
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`              // 记录时间
}

// TableName 指定表名
func (PaymentEvent) TableName() string {
	return "payment_events"
}
