package handlers

import (
	"strings"

	"github.com/payguard-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// BlacklistRequest 黑名单操作请求
type BlacklistRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

// FlagAccount 将账户加入黑名单
func (h *Handler) FlagAccount(c *gin.Context) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if err := h.BlacklistAdminService.FlagAccount(c.Request.Context(), req.AccountID); err != nil {
		response.Error(c, response.CodeInternal, "blacklist operation failed")
		return
	}
	response.Success(c, nil)
}

// UnflagAccount 将账户移出黑名单
func (h *Handler) UnflagAccount(c *gin.Context) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if err := h.BlacklistAdminService.UnflagAccount(c.Request.Context(), req.AccountID); err != nil {
		response.Error(c, response.CodeInternal, "blacklist operation failed")
		return
	}
	response.Success(c, nil)
}

// CheckBlacklist 查询账户黑名单状态
func (h *Handler) CheckBlacklist(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("account_id"))
	if accountID == "" {
		response.BadRequest(c, "invalid account id")
		return
	}
	flagged, err := h.BlacklistAdminService.IsFlagged(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, response.CodeInternal, "blacklist operation failed")
		return
	}
	response.Success(c, gin.H{
		"account_id": accountID,
		"flagged":    flagged,
	})
}

// ListBlacklist 列出黑名单账户
func (h *Handler) ListBlacklist(c *gin.Context) {
	accounts, err := h.BlacklistAdminService.ListFlagged(c.Request.Context())
	if err != nil {
		response.Error(c, response.CodeInternal, "blacklist operation failed")
		return
	}
	response.Success(c, accounts)
}
