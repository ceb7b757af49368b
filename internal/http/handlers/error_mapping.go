package handlers

import (
	"errors"

	"github.com/payguard-next/internal/gateway"
	"github.com/payguard-next/internal/http/response"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			response.Error(c, rule.code, rule.msg)
			return
		}
	}
	logger.Errorw("handler_unmapped_error",
		"path", c.FullPath(),
		"error", err,
	)
	response.Error(c, fallbackCode, fallbackMsg)
}

var paymentCommonErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "invalid request"},
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, msg: "payment not found"},
	{target: service.ErrInvalidStateTransition, code: response.CodeConflict, msg: "payment status does not allow this operation"},
}

var paymentInitiateErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "invalid request"},
	{target: service.ErrAccountNotFound, code: response.CodeNotFound, msg: "account not found"},
	{target: service.ErrAccountNotActive, code: response.CodeBadRequest, msg: "account not active"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, msg: "insufficient balance"},
	{target: service.ErrRuleViolation, code: response.CodeBadRequest, msg: "payment rule violation"},
	{target: service.ErrFraudBlocked, code: response.CodeForbidden, msg: "payment blocked by fraud detection"},
	{target: gateway.ErrRequestFailed, code: response.CodeInternal, msg: "account service unavailable"},
	{target: gateway.ErrResponseInvalid, code: response.CodeInternal, msg: "account service unavailable"},
}

var paymentConfirmErrorRules = append([]mappedHandlerError{
	{target: service.ErrBiometricVerification, code: response.CodeBadRequest, msg: "verification failed"},
}, paymentCommonErrorRules...)

var reverseErrorRules = append([]mappedHandlerError{
	{target: service.ErrReversalReasonInvalid, code: response.CodeBadRequest, msg: "invalid reversal reason"},
}, paymentCommonErrorRules...)

var ruleAdminErrorRules = []mappedHandlerError{
	{target: service.ErrRuleInvalid, code: response.CodeBadRequest, msg: "invalid rule"},
	{target: service.ErrRuleNotFound, code: response.CodeNotFound, msg: "rule not found"},
}

func respondPaymentInitiateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentInitiateErrorRules, response.CodeInternal, "payment initiation failed")
}

func respondPaymentConfirmError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentConfirmErrorRules, response.CodeInternal, "payment confirmation failed")
}

func respondPaymentError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCommonErrorRules, response.CodeInternal, "payment operation failed")
}

func respondReverseError(c *gin.Context, err error) {
	respondWithMappedError(c, err, reverseErrorRules, response.CodeInternal, "payment reversal failed")
}

func respondRuleAdminError(c *gin.Context, err error) {
	respondWithMappedError(c, err, ruleAdminErrorRules, response.CodeInternal, "rule operation failed")
}
