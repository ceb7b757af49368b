package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"

	"github.com/shopspring/decimal"
)

// HistoryStore 支付历史查询接口
type HistoryStore interface {
	CountCompletedSince(fromAccountID string, since time.Time) (int64, error)
}

// Result 欺诈检测结果，仅在单次评估内有效，不落库
type Result struct {
	IsFraud   bool   `json:"is_fraud"`
	FraudType string `json:"fraud_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Detector 欺诈检测器：黑名单短路 + 金额/频次启发式
type Detector struct {
	blacklist          Blacklist
	history            HistoryStore
	amountThreshold    decimal.Decimal
	frequencyThreshold int64
	frequencyWindow    time.Duration
}

// NewDetector 创建欺诈检测器
func NewDetector(blacklist Blacklist, history HistoryStore, cfg config.FraudConfig) *Detector {
	threshold := decimal.NewFromFloat(cfg.AmountThreshold)
	if threshold.LessThanOrEqual(decimal.Zero) {
		threshold = decimal.NewFromInt(10000)
	}
	frequencyThreshold := cfg.FrequencyThreshold
	if frequencyThreshold <= 0 {
		frequencyThreshold = 10
	}
	return &Detector{
		blacklist:          blacklist,
		history:            history,
		amountThreshold:    threshold,
		frequencyThreshold: frequencyThreshold,
		frequencyWindow:    cfg.FrequencyWindow(),
	}
}

// Evaluate 评估支付是否存在欺诈风险。
// 黑名单命中立即返回，不再发起任何历史查询。
func (d *Detector) Evaluate(ctx context.Context, payment *models.Payment) (*Result, error) {
	blacklisted, err := d.blacklist.Contains(ctx, payment.FromAccountID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		logger.Warnw("fraud_blacklist_hit",
			"payment_no", payment.PaymentNo,
			"from_account_id", payment.FromAccountID,
		)
		return &Result{
			IsFraud:   true,
			FraudType: constants.FraudTypeBlacklist,
			Reason:    "Account is blacklisted",
		}, nil
	}

	amount := payment.Amount.Decimal
	if amount.GreaterThan(d.amountThreshold) {
		return &Result{
			IsFraud:   true,
			FraudType: constants.FraudTypeSuspiciousAmount,
			Reason:    fmt.Sprintf("Transaction amount %s exceeds threshold %s", amount.StringFixed(2), d.amountThreshold.StringFixed(2)),
		}, nil
	}

	// 频次窗口锚定当前时间，而不是支付单自身的时间戳
	since := time.Now().Add(-d.frequencyWindow)
	count, err := d.history.CountCompletedSince(payment.FromAccountID, since)
	if err != nil {
		return nil, err
	}
	if count > d.frequencyThreshold {
		logger.Warnw("fraud_frequency_anomaly",
			"payment_no", payment.PaymentNo,
			"from_account_id", payment.FromAccountID,
			"completed_in_window", count,
			"threshold", d.frequencyThreshold,
		)
		return &Result{
			IsFraud:   true,
			FraudType: constants.FraudTypeSuspiciousAmount,
			Reason:    "Suspicious transaction pattern detected",
		}, nil
	}

	return &Result{IsFraud: false}, nil
}
