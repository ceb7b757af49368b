package repository

import (
	"strings"
	"time"

	"github.com/payguard-next/internal/models"

	"gorm.io/gorm"
)

// TokenRepository 二维码令牌数据访问接口
type TokenRepository interface {
	Create(token *models.QrToken) error
	GetByToken(token string) (*models.QrToken, error)
	Consume(token string, now time.Time) (int64, error)
	DeleteExpiredUnused(now time.Time) (int64, error)
}

// GormTokenRepository GORM 实现
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 创建令牌仓库
func NewTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Create 创建令牌记录
func (r *GormTokenRepository) Create(token *models.QrToken) error {
	return r.db.Create(token).Error
}

// GetByToken 根据令牌值获取记录
func (r *GormTokenRepository) GetByToken(token string) (*models.QrToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var record models.QrToken
	result := r.db.Where("token = ?", token).Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &record, nil
}

// Consume 原子核销令牌：仅当 is_used = false 时置为已使用。
// 核销与检查必须是同一条条件更新，并发核销同一令牌最多一次成功。
func (r *GormTokenRepository) Consume(token string, now time.Time) (int64, error) {
	result := r.db.Model(&models.QrToken{}).
		Where("token = ? AND is_used = ?", token, false).
		Updates(map[string]interface{}{
			"is_used":     true,
			"verified_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteExpiredUnused 清理过期且未使用的令牌
func (r *GormTokenRepository) DeleteExpiredUnused(now time.Time) (int64, error) {
	result := r.db.Where("expires_at < ? AND is_used = ?", now, false).
		Delete(&models.QrToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
