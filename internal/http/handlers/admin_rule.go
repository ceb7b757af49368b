package handlers

import (
	"github.com/payguard-next/internal/http/response"
	"github.com/payguard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRule 创建支付规则
func (h *Handler) CreateRule(c *gin.Context) {
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	rule, err := h.RuleAdminService.CreateRule(req)
	if err != nil {
		respondRuleAdminError(c, err)
		return
	}
	response.Success(c, rule)
}

// UpdateRule 更新支付规则
func (h *Handler) UpdateRule(c *gin.Context) {
	ruleID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid rule id")
		return
	}
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	rule, err := h.RuleAdminService.UpdateRule(ruleID, req)
	if err != nil {
		respondRuleAdminError(c, err)
		return
	}
	response.Success(c, rule)
}

// DeleteRule 删除支付规则
func (h *Handler) DeleteRule(c *gin.Context) {
	ruleID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid rule id")
		return
	}
	if err := h.RuleAdminService.DeleteRule(ruleID); err != nil {
		respondRuleAdminError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetRule 查询支付规则
func (h *Handler) GetRule(c *gin.Context) {
	ruleID, ok := paramUint(c, "id")
	if !ok {
		response.BadRequest(c, "invalid rule id")
		return
	}
	rule, err := h.RuleAdminService.GetRule(ruleID)
	if err != nil {
		respondRuleAdminError(c, err)
		return
	}
	response.Success(c, rule)
}

// ListRules 查询全部支付规则
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.RuleAdminService.ListRules()
	if err != nil {
		respondRuleAdminError(c, err)
		return
	}
	response.Success(c, rules)
}
