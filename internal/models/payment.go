package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID              uint           `gorm:"primarykey" json:"id"`                      // 主键
	PaymentNo       string         `gorm:"uniqueIndex;not null" json:"payment_no"`    // 支付单号
	UserID          uint           `gorm:"index;not null" json:"user_id"`             // 发起用户ID
	FromAccountID   string         `gorm:"index;not null" json:"from_account_id"`     // 付款账户
	ToAccountID     string         `gorm:"index" json:"to_account_id"`                // 收款账户
	BeneficiaryName string         `json:"beneficiary_name"`                          // 收款人名称
	Amount          Money          `gorm:"type:decimal(20,2);not null" json:"amount"` // 支付金额
	Currency        string         `gorm:"not null" json:"currency"`                  // 币种（创建后不可变）
	PaymentType     string         `gorm:"index;not null" json:"payment_type"`        // 支付类型（standard/instant/biometric/qr_code）
	Status          string         `gorm:"index;not null" json:"status"`              // 支付状态
	Reference       string         `gorm:"index" json:"reference"`                    // 业务参考号
	Description     string         `gorm:"type:text" json:"description"`              // 描述
	FailureReason   string         `json:"failure_reason"`                            // 失败原因
	ReversalReason  string         `json:"reversal_reason"`                           // 撤销原因
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                   // 更新时间
	CompletedAt     *time.Time     `gorm:"index" json:"completed_at"`                 // 完成时间
	ReversedAt      *time.Time     `json:"reversed_at"`                               // 撤销时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
