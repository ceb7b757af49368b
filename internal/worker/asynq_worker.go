package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/provider"
	"github.com/payguard-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentCompleted, c.handlePaymentCompleted)
	mux.HandleFunc(queue.TaskPaymentReversed, c.handlePaymentReversed)
	mux.HandleFunc(queue.TaskFraudDetected, c.handleFraudDetected)
}

func (c *Consumer) handlePaymentCompleted(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_completed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentCompletedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_completed_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventID == "" || payload.PaymentID == 0 {
		logger.Debugw("worker_payment_completed_skip_invalid_payload",
			"event_id", payload.EventID,
			"payment_id", payload.PaymentID,
		)
		return nil
	}
	return c.recordEvent(payload.EventID, queue.TaskPaymentCompleted, payload.PaymentID, task.Payload())
}

func (c *Consumer) handlePaymentReversed(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_reversed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentReversedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_reversed_unmarshal_failed", "error", err)
		return err
	}
	if payload.EventID == "" || payload.PaymentID == 0 {
		logger.Debugw("worker_payment_reversed_skip_invalid_payload",
			"event_id", payload.EventID,
			"payment_id", payload.PaymentID,
		)
		return nil
	}
	return c.recordEvent(payload.EventID, queue.TaskPaymentReversed, payload.PaymentID, task.Payload())
}

func (c *Consumer) handleFraudDetected(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_fraud_detected_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.FraudDetectedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_fraud_detected_unmarshal_failed", "error", err)
		return err
	}
	if payload.FraudID == "" || payload.PaymentID == 0 {
		logger.Debugw("worker_fraud_detected_skip_invalid_payload",
			"fraud_id", payload.FraudID,
			"payment_id", payload.PaymentID,
		)
		return nil
	}
	return c.recordEvent(payload.FraudID, queue.TaskFraudDetected, payload.PaymentID, task.Payload())
}

// recordEvent 事件落库，重复投递按 event_id 去重
func (c *Consumer) recordEvent(eventID, eventType string, paymentID uint, raw []byte) error {
	if c.EventLogRepo == nil {
		logger.Warnw("worker_event_record_skip_repo_nil", "event_id", eventID, "event_type", eventType)
		return nil
	}
	var body models.JSON
	if err := json.Unmarshal(raw, &body); err != nil {
		logger.Warnw("worker_event_payload_decode_failed", "event_id", eventID, "error", err)
		return err
	}
	created, err := c.EventLogRepo.Record(&models.PaymentEvent{
		EventID:    eventID,
		EventType:  eventType,
		PaymentID:  paymentID,
		Payload:    body,
		RecordedAt: time.Now(),
	})
	if err != nil {
		logger.Warnw("worker_event_record_failed",
			"event_id", eventID,
			"event_type", eventType,
			"error", err,
		)
		return err
	}
	if !created {
		logger.Debugw("worker_event_skip_duplicate",
			"event_id", eventID,
			"event_type", eventType,
		)
		return nil
	}
	logger.Infow("worker_event_recorded",
		"event_id", eventID,
		"event_type", eventType,
		"payment_id", paymentID,
	)
	return nil
}
