package models

import (
	"time"
)

// QrToken 单次使用的二维码/生物识别令牌
type QrToken struct {
	ID            uint       `gorm:"primarykey" json:"id"`                      // 主键
	Token         string     `gorm:"uniqueIndex;not null" json:"token"`         // 不可猜测的令牌值
	PaymentID     uint       `gorm:"index;not null" json:"payment_id"`          // 绑定的支付ID
	UserID        uint       `gorm:"index;not null" json:"user_id"`             // 绑定的用户ID
	Amount        Money      `gorm:"type:decimal(20,2);not null" json:"amount"` // 支付金额
	Currency      string     `gorm:"not null" json:"currency"`                  // 币种
	FromAccountID string     `gorm:"not null" json:"from_account_id"`           // 付款账户
	ToAccountID   string     `json:"to_account_id"`                             // 收款账户
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`          // 过期时间
	IsUsed        bool       `gorm:"index;not null;default:false" json:"is_used"` // 是否已使用
	VerifiedAt    *time.Time `json:"verified_at"`                               // 验证时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (QrToken) TableName() string {
	return "qr_tokens"
}
