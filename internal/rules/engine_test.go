package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/payguard-next/internal/models"

	"github.com/shopspring/decimal"
)

type staticRuleSource struct {
	rules []models.PaymentRule
	err   error
}

func (s *staticRuleSource) ListEnabledByPriority() ([]models.PaymentRule, error) {
	return s.rules, s.err
}

func testPayment(amount string, currency string) *models.Payment {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return &models.Payment{
		PaymentNo: "PG20260101000000000001",
		Amount:    models.NewMoneyFromDecimal(value),
		Currency:  currency,
	}
}

func TestEvaluateNoRulesPasses(t *testing.T) {
	engine := NewEngine(&staticRuleSource{})
	violation, err := engine.Evaluate(testPayment("100.00", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation != nil {
		t.Fatalf("expected pass, got violation: %+v", violation)
	}
}

func TestEvaluateMaxAmount(t *testing.T) {
	source := &staticRuleSource{rules: []models.PaymentRule{
		{
			ID:         1,
			Name:       "cap",
			Priority:   100,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"max_amount": "1000"}),
		},
	}}
	engine := NewEngine(source)

	violation, err := engine.Evaluate(testPayment("1000.00", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation != nil {
		t.Fatalf("amount at limit should pass, got: %+v", violation)
	}

	violation, err = engine.Evaluate(testPayment("1000.01", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation == nil {
		t.Fatalf("amount above limit should fail")
	}
	if violation.RuleName != "cap" {
		t.Fatalf("unexpected rule name: %s", violation.RuleName)
	}
	if !strings.Contains(violation.Reason, "max_amount") {
		t.Fatalf("unexpected reason: %s", violation.Reason)
	}
}

func TestEvaluateMinAmountAndCurrency(t *testing.T) {
	source := &staticRuleSource{rules: []models.PaymentRule{
		{
			ID:         1,
			Name:       "floor",
			Priority:   90,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"min_amount": "1"}),
		},
		{
			ID:         2,
			Name:       "usd-only",
			Priority:   80,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"currency": "USD"}),
		},
	}}
	engine := NewEngine(source)

	violation, err := engine.Evaluate(testPayment("0.50", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation == nil || violation.RuleName != "floor" {
		t.Fatalf("expected floor violation, got: %+v", violation)
	}

	violation, err = engine.Evaluate(testPayment("10.00", "EUR"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation == nil || violation.RuleName != "usd-only" {
		t.Fatalf("expected currency violation, got: %+v", violation)
	}

	violation, err = engine.Evaluate(testPayment("10.00", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation != nil {
		t.Fatalf("expected pass, got: %+v", violation)
	}
}

func TestEvaluateFirstFailingRuleWins(t *testing.T) {
	source := &staticRuleSource{rules: []models.PaymentRule{
		{
			ID:         1,
			Name:       "high-priority-cap",
			Priority:   100,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"max_amount": "100"}),
		},
		{
			ID:         2,
			Name:       "low-priority-cap",
			Priority:   10,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"max_amount": "50"}),
		},
	}}
	engine := NewEngine(source)

	violation, err := engine.Evaluate(testPayment("200.00", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation == nil || violation.RuleName != "high-priority-cap" {
		t.Fatalf("expected first rule to win, got: %+v", violation)
	}
}

func TestEvaluateMalformedConditionsFailClosed(t *testing.T) {
	source := &staticRuleSource{rules: []models.PaymentRule{
		{
			ID:         1,
			Name:       "broken",
			Priority:   100,
			Enabled:    true,
			Conditions: models.JSON(map[string]interface{}{"max_amount": true}),
		},
	}}
	engine := NewEngine(source)

	violation, err := engine.Evaluate(testPayment("1.00", "USD"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if violation == nil {
		t.Fatalf("malformed conditions should fail the payment")
	}
	if violation.Reason != "rule conditions malformed" {
		t.Fatalf("unexpected reason: %s", violation.Reason)
	}
}

func TestEvaluateSourceError(t *testing.T) {
	wantErr := errors.New("db down")
	engine := NewEngine(&staticRuleSource{err: wantErr})
	_, err := engine.Evaluate(testPayment("1.00", "USD"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected source error, got: %v", err)
	}
}
