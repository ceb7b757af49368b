package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/repository"
	"github.com/payguard-next/internal/rules"
)

// RuleAdminService 支付规则管理服务
type RuleAdminService struct {
	ruleRepo repository.RuleRepository
}

// NewRuleAdminService 创建规则管理服务
func NewRuleAdminService(ruleRepo repository.RuleRepository) *RuleAdminService {
	return &RuleAdminService{ruleRepo: ruleRepo}
}

// RuleInput 规则创建/更新输入
type RuleInput struct {
	Name       string      `json:"name"`
	Priority   int         `json:"priority"`
	Enabled    *bool       `json:"enabled"`
	Conditions models.JSON `json:"conditions"`
}

// CreateRule 创建规则，条件必须可解析
func (s *RuleAdminService) CreateRule(input RuleInput) (*models.PaymentRule, error) {
	if err := validateRuleInput(&input); err != nil {
		return nil, err
	}
	now := time.Now()
	rule := &models.PaymentRule{
		Name:       input.Name,
		Priority:   input.Priority,
		Enabled:    true,
		Conditions: input.Conditions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if err := s.ruleRepo.Create(rule); err != nil {
		return nil, err
	}
	logger.Infow("payment_rule_created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"priority", rule.Priority,
		"enabled", rule.Enabled,
	)
	return rule, nil
}

// UpdateRule 更新规则
func (s *RuleAdminService) UpdateRule(ruleID uint, input RuleInput) (*models.PaymentRule, error) {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	if err := validateRuleInput(&input); err != nil {
		return nil, err
	}
	rule.Name = input.Name
	rule.Priority = input.Priority
	rule.Conditions = input.Conditions
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	rule.UpdatedAt = time.Now()
	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	logger.Infow("payment_rule_updated",
		"rule_id", rule.ID,
		"name", rule.Name,
		"priority", rule.Priority,
		"enabled", rule.Enabled,
	)
	return rule, nil
}

// DeleteRule 删除规则
func (s *RuleAdminService) DeleteRule(ruleID uint) error {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}
	if err := s.ruleRepo.Delete(ruleID); err != nil {
		return err
	}
	logger.Infow("payment_rule_deleted", "rule_id", ruleID)
	return nil
}

// GetRule 查询规则
func (s *RuleAdminService) GetRule(ruleID uint) (*models.PaymentRule, error) {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules 查询全部规则
func (s *RuleAdminService) ListRules() ([]models.PaymentRule, error) {
	rules, _, err := s.ruleRepo.List(repository.RuleListFilter{})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func validateRuleInput(input *RuleInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: 规则名称必填", ErrRuleInvalid)
	}
	if len(input.Conditions) == 0 {
		return fmt.Errorf("%w: 规则条件必填", ErrRuleInvalid)
	}
	conditions, err := rules.ParseConditions(input.Conditions)
	if err != nil {
		return fmt.Errorf("%w: 条件无法解析", ErrRuleInvalid)
	}
	if conditions.MaxAmount != nil && conditions.MinAmount != nil &&
		conditions.MaxAmount.LessThan(*conditions.MinAmount) {
		return fmt.Errorf("%w: max_amount 小于 min_amount", ErrRuleInvalid)
	}
	return nil
}
