package biometric

import (
	"errors"
	"fmt"

	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/token"
)

// ErrVerificationFailed 验证失败统一错误。
// 对外只暴露统一失败原因，具体校验细节仅写入日志。
var ErrVerificationFailed = errors.New("biometric verification failed")

// Proof 支付确认凭证
type Proof struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

// Verifier 生物识别验证门面，当前仅支持二维码令牌一种方式
type Verifier struct {
	tokens  *token.Service
	enabled bool
}

// NewVerifier 创建验证门面
func NewVerifier(tokens *token.Service, enabled bool) *Verifier {
	return &Verifier{tokens: tokens, enabled: enabled}
}

// Enabled 验证开关状态
func (v *Verifier) Enabled() bool {
	return v.enabled
}

// HasCapability 判断用户是否具备验证能力
func (v *Verifier) HasCapability(userID uint) bool {
	if !v.enabled {
		return true
	}
	return v.tokens.HasCapability(userID)
}

// Verify 校验支付凭证。
// 开关关闭时直接放行且不触碰令牌存储；开启时凭证必须是有效的一次性令牌，
// 核销成功返回令牌记录。
func (v *Verifier) Verify(proof Proof, userID uint) (*models.QrToken, error) {
	if !v.enabled {
		logger.Debugw("biometric_verification_skipped", "user_id", userID)
		return nil, nil
	}
	if proof.Method != constants.ProofMethodQRCode {
		logger.Warnw("biometric_method_unsupported",
			"user_id", userID,
			"method", proof.Method,
		)
		return nil, fmt.Errorf("%w: unsupported method", ErrVerificationFailed)
	}
	record, err := v.tokens.ValidateAndBurn(proof.Token, userID)
	if err != nil {
		logger.Warnw("biometric_verification_rejected",
			"user_id", userID,
			"cause", err.Error(),
		)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	logger.Infow("biometric_verification_passed",
		"user_id", userID,
		"payment_id", record.PaymentID,
	)
	return record, nil
}
