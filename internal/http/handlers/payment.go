package handlers

import (
	"strconv"
	"strings"

	"github.com/payguard-next/internal/biometric"
	"github.com/payguard-next/internal/http/response"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/repository"
	"github.com/payguard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// InitiatePaymentRequest 发起支付请求
type InitiatePaymentRequest struct {
	UserID          uint   `json:"user_id" binding:"required"`
	FromAccountID   string `json:"from_account_id" binding:"required"`
	ToAccountID     string `json:"to_account_id" binding:"required"`
	BeneficiaryName string `json:"beneficiary_name"`
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"required"`
	PaymentType     string `json:"payment_type" binding:"required"`
	Reference       string `json:"reference"`
	Description     string `json:"description"`
}

// InitiatePayment 发起支付
func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	amount, err := models.NewMoneyFromString(req.Amount)
	if err != nil {
		response.BadRequest(c, "invalid amount")
		return
	}
	result, err := h.PaymentService.InitiatePayment(c.Request.Context(), service.InitiatePaymentInput{
		UserID:          req.UserID,
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		BeneficiaryName: req.BeneficiaryName,
		Amount:          amount,
		Currency:        req.Currency,
		PaymentType:     req.PaymentType,
		Reference:       req.Reference,
		Description:     req.Description,
	})
	if err != nil {
		respondPaymentInitiateError(c, err)
		return
	}
	response.Success(c, result)
}

// ConfirmPaymentRequest 确认支付请求
type ConfirmPaymentRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Method string `json:"method" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

// ConfirmPayment 持有人出示凭证确认支付
func (h *Handler) ConfirmPayment(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid payment id")
		return
	}
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	payment, err := h.PaymentService.ConfirmPayment(c.Request.Context(), service.ConfirmPaymentInput{
		PaymentID: paymentID,
		UserID:    req.UserID,
		Proof: biometric.Proof{
			Method: req.Method,
			Token:  req.Token,
		},
	})
	if err != nil {
		respondPaymentConfirmError(c, err)
		return
	}
	response.Success(c, payment)
}

// ProcessPayment 重新驱动待处理支付
func (h *Handler) ProcessPayment(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid payment id")
		return
	}
	payment, err := h.PaymentService.ProcessPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, payment)
}

// CancelPaymentRequest 取消支付请求
type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// CancelPayment 取消支付
func (h *Handler) CancelPayment(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid payment id")
		return
	}
	var req CancelPaymentRequest
	_ = c.ShouldBindJSON(&req)
	payment, err := h.PaymentService.CancelPayment(paymentID, req.Reason)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, payment)
}

// ReversePaymentRequest 撤销支付请求
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReversePayment 撤销已完成支付
func (h *Handler) ReversePayment(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid payment id")
		return
	}
	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	payment, err := h.PaymentService.ReversePayment(paymentID, req.Reason)
	if err != nil {
		respondReverseError(c, err)
		return
	}
	response.Success(c, payment)
}

// GetPayment 查询支付单
func (h *Handler) GetPayment(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		// 支持按支付单号查询
		paymentNo := strings.TrimSpace(c.Param("id"))
		payment, err := h.PaymentService.GetPaymentByNo(paymentNo)
		if err != nil {
			respondPaymentError(c, err)
			return
		}
		response.Success(c, payment)
		return
	}
	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, payment)
}

// ListPayments 查询支付列表
func (h *Handler) ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	filter := repository.PaymentListFilter{
		UserID:        uint(userID),
		FromAccountID: strings.TrimSpace(c.Query("from_account_id")),
		PaymentType:   strings.TrimSpace(c.Query("payment_type")),
		Status:        strings.TrimSpace(c.Query("status")),
		Page:          page,
		PageSize:      pageSize,
	}
	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	response.SuccessWithPage(c, payments, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
