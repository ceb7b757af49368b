package service

import (
	"errors"

	"github.com/payguard-next/internal/biometric"
)

// 支付服务错误
var (
	ErrValidation             = errors.New("参数校验失败")
	ErrAccountNotFound        = errors.New("账户不存在")
	ErrAccountNotActive       = errors.New("账户不可用")
	ErrInsufficientBalance    = errors.New("账户余额不足")
	ErrRuleViolation          = errors.New("支付规则校验未通过")
	ErrFraudBlocked           = errors.New("支付被风控拦截")
	ErrPaymentNotFound        = errors.New("支付单不存在")
	ErrPaymentCreateFailed    = errors.New("支付单创建失败")
	ErrInvalidStateTransition = errors.New("支付状态不允许该操作")
	ErrReversalReasonInvalid  = errors.New("撤销原因无效")
	ErrRuleNotFound           = errors.New("支付规则不存在")
	ErrRuleInvalid            = errors.New("支付规则配置无效")
)

// ErrBiometricVerification 验证失败沿用门面错误，便于上层 errors.Is 判定
var ErrBiometricVerification = biometric.ErrVerificationFailed
