package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/repository"

	"github.com/skip2/go-qrcode"
)

// 令牌校验错误
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenUsed     = errors.New("token already used")
	ErrUserMismatch  = errors.New("token does not belong to user")
)

// IssueInput 令牌签发入参
type IssueInput struct {
	PaymentID     uint
	UserID        uint
	Amount        models.Money
	Currency      string
	FromAccountID string
	ToAccountID   string
}

// IssueResult 令牌签发结果
type IssueResult struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ImageBase64 string    `json:"image_base64"`
}

// Service 单次使用支付令牌服务
type Service struct {
	tokenRepo    repository.TokenRepository
	expireWindow time.Duration
	imageSize    int
}

// NewService 创建令牌服务
func NewService(tokenRepo repository.TokenRepository, cfg config.QRTokenConfig) *Service {
	imageSize := cfg.ImageWidth
	if cfg.ImageHeight > imageSize {
		imageSize = cfg.ImageHeight
	}
	if imageSize <= 0 {
		imageSize = 300
	}
	return &Service{
		tokenRepo:    tokenRepo,
		expireWindow: cfg.ExpireWindow(),
		imageSize:    imageSize,
	}
}

// Issue 为待确认支付签发一次性令牌并渲染二维码图片
func (s *Service) Issue(input IssueInput) (*IssueResult, error) {
	tokenValue, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	expiresAt := now.Add(s.expireWindow)

	record := &models.QrToken{
		Token:         tokenValue,
		PaymentID:     input.PaymentID,
		UserID:        input.UserID,
		Amount:        input.Amount,
		Currency:      input.Currency,
		FromAccountID: input.FromAccountID,
		ToAccountID:   input.ToAccountID,
		ExpiresAt:     expiresAt,
		IsUsed:        false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tokenRepo.Create(record); err != nil {
		return nil, err
	}

	image, err := renderQRImage(record, s.imageSize)
	if err != nil {
		return nil, err
	}

	logger.Infow("qr_token_issued",
		"payment_id", input.PaymentID,
		"user_id", input.UserID,
		"expires_at", expiresAt,
	)
	return &IssueResult{
		Token:       tokenValue,
		ExpiresAt:   expiresAt,
		ImageBase64: image,
	}, nil
}

// ValidateAndBurn 校验并核销令牌。
// 过期、已使用、持有人不符均拒绝；核销依赖仓库层的条件更新，
// 并发提交同一令牌时只有一次成功，落败方按已使用处理。
func (s *Service) ValidateAndBurn(tokenValue string, userID uint) (*models.QrToken, error) {
	record, err := s.tokenRepo.GetByToken(tokenValue)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}
	now := time.Now()
	if now.After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if record.IsUsed {
		return nil, ErrTokenUsed
	}
	if record.UserID != userID {
		return nil, ErrUserMismatch
	}

	affected, err := s.tokenRepo.Consume(tokenValue, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTokenUsed
	}
	record.IsUsed = true
	record.VerifiedAt = &now
	record.UpdatedAt = now
	return record, nil
}

// HasCapability 判断用户是否具备扫码支付能力。
// 当前所有用户均可使用，保留入口以便后续接入设备绑定。
func (s *Service) HasCapability(userID uint) bool {
	return userID != 0
}

// SweepExpired 清理过期未使用令牌，返回清理数量
func (s *Service) SweepExpired() (int64, error) {
	return s.tokenRepo.DeleteExpiredUnused(time.Now())
}

// generateToken 生成不可预测令牌：随机串拼接纳秒时间戳
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%d", base64.RawURLEncoding.EncodeToString(buf), time.Now().UnixNano()), nil
}

// renderQRImage 将令牌负载渲染为 PNG 并编码为 base64
func renderQRImage(record *models.QrToken, size int) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"token":      record.Token,
		"payment_id": record.PaymentID,
		"amount":     record.Amount,
		"currency":   record.Currency,
		"expires_at": record.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", err
	}
	code, err := qrcode.New(string(payload), qrcode.High)
	if err != nil {
		return "", err
	}
	png, err := code.PNG(size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
