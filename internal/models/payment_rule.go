package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentRule 支付业务规则
type PaymentRule struct {
	ID         uint           `gorm:"primarykey" json:"id"`                    // 主键
	Name       string         `gorm:"not null" json:"name"`                    // 规则名称
	Priority   int            `gorm:"index;not null;default:0" json:"priority"` // 优先级（越大越先评估）
	Enabled    bool           `gorm:"index;not null;default:true" json:"enabled"` // 是否启用
	Conditions JSON           `gorm:"type:json" json:"conditions"`             // 条件集（max_amount/min_amount/currency）
	CreatedAt  time.Time      `json:"created_at"`                              // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                              // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间
}

// TableName 指定表名
func (PaymentRule) TableName() string {
	return "payment_rules"
}
