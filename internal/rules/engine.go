package rules

import (
	"encoding/json"
	"fmt"

	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"

	"github.com/shopspring/decimal"
)

// Conditions 规则条件集
type Conditions struct {
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	Currency  string           `json:"currency,omitempty"`
}

// Violation 规则违反结果
type Violation struct {
	RuleID   uint   `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Reason   string `json:"reason"`
}

// RuleSource 启用规则来源（优先级降序）
type RuleSource interface {
	ListEnabledByPriority() ([]models.PaymentRule, error)
}

// Engine 规则引擎：按优先级降序评估，首个不满足的规则即拒绝
type Engine struct {
	ruleSource RuleSource
}

// NewEngine 创建规则引擎
func NewEngine(ruleSource RuleSource) *Engine {
	return &Engine{ruleSource: ruleSource}
}

// Evaluate 评估支付是否满足全部启用规则。
// 返回首个违反的规则；全部通过（或无规则）返回 nil。
func (e *Engine) Evaluate(payment *models.Payment) (*Violation, error) {
	rules, err := e.ruleSource.ListEnabledByPriority()
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if violation := evaluateRule(&rules[i], payment); violation != nil {
			logger.Debugw("rule_evaluation_failed",
				"payment_no", payment.PaymentNo,
				"rule_id", violation.RuleID,
				"rule_name", violation.RuleName,
				"reason", violation.Reason,
			)
			return violation, nil
		}
	}
	return nil, nil
}

// ParseConditions 解析规则条件；无法解析视为规则失败（fail-closed）
func ParseConditions(raw models.JSON) (*Conditions, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var conditions Conditions
	if err := json.Unmarshal(payload, &conditions); err != nil {
		return nil, err
	}
	return &conditions, nil
}

func evaluateRule(rule *models.PaymentRule, payment *models.Payment) *Violation {
	conditions, err := ParseConditions(rule.Conditions)
	if err != nil {
		// 条件数据损坏时按失败处理，评估到此为止
		return &Violation{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Reason:   "rule conditions malformed",
		}
	}
	amount := payment.Amount.Decimal
	if conditions.MaxAmount != nil && amount.GreaterThan(*conditions.MaxAmount) {
		return &Violation{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Reason:   fmt.Sprintf("amount %s exceeds max_amount %s", amount.StringFixed(2), conditions.MaxAmount.StringFixed(2)),
		}
	}
	if conditions.MinAmount != nil && amount.LessThan(*conditions.MinAmount) {
		return &Violation{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Reason:   fmt.Sprintf("amount %s below min_amount %s", amount.StringFixed(2), conditions.MinAmount.StringFixed(2)),
		}
	}
	if conditions.Currency != "" && conditions.Currency != payment.Currency {
		return &Violation{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Reason:   fmt.Sprintf("currency %s not allowed, expected %s", payment.Currency, conditions.Currency),
		}
	}
	return nil
}
