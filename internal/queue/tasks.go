package queue

import (
	"encoding/json"
	"time"

	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentCompleted 支付完成事件任务
	TaskPaymentCompleted = constants.TaskPaymentCompleted
	// TaskPaymentReversed 支付撤销事件任务
	TaskPaymentReversed = constants.TaskPaymentReversed
	// TaskFraudDetected 欺诈拦截事件任务
	TaskFraudDetected = constants.TaskFraudDetected
)

// PaymentCompletedPayload 支付完成事件载荷
type PaymentCompletedPayload struct {
	EventID         string       `json:"event_id"`
	PaymentID       uint         `json:"payment_id"`
	PaymentNo       string       `json:"payment_no"`
	AccountID       string       `json:"account_id"`
	Amount          models.Money `json:"amount"`
	Currency        string       `json:"currency"`
	TransactionType string       `json:"transaction_type"`
	Status          string       `json:"status"`
	CompletedAt     time.Time    `json:"completed_at"`
}

// PaymentReversedPayload 支付撤销事件载荷
type PaymentReversedPayload struct {
	EventID             string       `json:"event_id"`
	PaymentID           uint         `json:"payment_id"`
	PaymentNo           string       `json:"payment_no"`
	AccountID           string       `json:"account_id"`
	Amount              models.Money `json:"amount"`
	Currency            string       `json:"currency"`
	ReversalReason      string       `json:"reversal_reason"`
	OriginalPaymentDate time.Time    `json:"original_payment_date"`
	ReversedAt          time.Time    `json:"reversed_at"`
}

// FraudDetectedPayload 欺诈拦截事件载荷
type FraudDetectedPayload struct {
	FraudID    string       `json:"fraud_id"`
	PaymentID  uint         `json:"payment_id"`
	PaymentNo  string       `json:"payment_no"`
	AccountID  string       `json:"account_id"`
	UserID     uint         `json:"user_id"`
	Amount     models.Money `json:"amount"`
	FraudType  string       `json:"fraud_type"`
	Reason     string       `json:"reason"`
	DetectedAt time.Time    `json:"detected_at"`
	Action     string       `json:"action"`
}

// NewPaymentCompletedTask 创建支付完成事件任务
func NewPaymentCompletedTask(payload PaymentCompletedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentCompleted, body), nil
}

// NewPaymentReversedTask 创建支付撤销事件任务
func NewPaymentReversedTask(payload PaymentReversedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReversed, body), nil
}

// NewFraudDetectedTask 创建欺诈拦截事件任务
func NewFraudDetectedTask(payload FraudDetectedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFraudDetected, body), nil
}
