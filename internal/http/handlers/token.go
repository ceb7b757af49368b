package handlers

import (
	"github.com/payguard-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// IssueTokenRequest 补发令牌请求
type IssueTokenRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// IssuePaymentToken 为待确认支付补发一次性令牌
func (h *Handler) IssuePaymentToken(c *gin.Context) {
	paymentID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid payment id")
		return
	}
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	issued, err := h.PaymentService.IssuePaymentToken(paymentID, req.UserID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, issued)
}
