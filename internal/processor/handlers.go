package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// ErrSettlementRejected 结算入参非法，不可重试
var ErrSettlementRejected = errors.New("settlement rejected")

// DefaultHandlers 内置四种支付类型的结算处理器
func DefaultHandlers() []Handler {
	return []Handler{
		&StandardHandler{},
		&InstantHandler{},
		&BiometricHandler{},
		&QRCodeHandler{},
	}
}

func checkSettleable(payment *models.Payment) error {
	if payment.Amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return backoff.Permanent(fmt.Errorf("%w: amount must be positive", ErrSettlementRejected))
	}
	if payment.Currency == "" {
		return backoff.Permanent(fmt.Errorf("%w: currency required", ErrSettlementRejected))
	}
	return nil
}

// StandardHandler 标准转账结算
type StandardHandler struct{}

// Type 处理的支付类型
func (h *StandardHandler) Type() string { return constants.PaymentTypeStandard }

// Settle 标准结算：走批量清算通道，失败不重试
func (h *StandardHandler) Settle(ctx context.Context, payment *models.Payment) error {
	if err := checkSettleable(payment); err != nil {
		return err
	}
	logger.Infow("settle_standard",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return nil
}

// InstantHandler 即时转账结算
type InstantHandler struct{}

// Type 处理的支付类型
func (h *InstantHandler) Type() string { return constants.PaymentTypeInstant }

// Settle 即时结算：瞬时故障交由调度器重试
func (h *InstantHandler) Settle(ctx context.Context, payment *models.Payment) error {
	if err := checkSettleable(payment); err != nil {
		return err
	}
	logger.Infow("settle_instant",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return nil
}

// BiometricHandler 生物识别支付结算，进入结算前凭证已核销
type BiometricHandler struct{}

// Type 处理的支付类型
func (h *BiometricHandler) Type() string { return constants.PaymentTypeBiometric }

// Settle 生物识别支付结算
func (h *BiometricHandler) Settle(ctx context.Context, payment *models.Payment) error {
	if err := checkSettleable(payment); err != nil {
		return err
	}
	logger.Infow("settle_biometric",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return nil
}

// QRCodeHandler 扫码支付结算，进入结算前令牌已核销
type QRCodeHandler struct{}

// Type 处理的支付类型
func (h *QRCodeHandler) Type() string { return constants.PaymentTypeQRCode }

// Settle 扫码支付结算
func (h *QRCodeHandler) Settle(ctx context.Context, payment *models.Payment) error {
	if err := checkSettleable(payment); err != nil {
		return err
	}
	logger.Infow("settle_qr_code",
		"payment_no", payment.PaymentNo,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return nil
}
