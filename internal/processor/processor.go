package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/repository"

	"github.com/cenkalti/backoff/v4"
)

// 结算调度错误
var (
	ErrHandlerMissing = errors.New("no handler registered for payment type")
	ErrNotProcessable = errors.New("payment is not in a processable state")
)

// Handler 支付类型结算处理器。
// Settle 返回 backoff.Permanent 包装的错误视为不可重试。
type Handler interface {
	Type() string
	Settle(ctx context.Context, payment *models.Payment) error
}

// Dispatcher 按支付类型调度结算并维护状态转移
type Dispatcher struct {
	paymentRepo    repository.PaymentRepository
	handlers       map[string]Handler
	maxAttempts    int
	initialBackoff time.Duration
}

// NewDispatcher 创建调度器
func NewDispatcher(paymentRepo repository.PaymentRepository, cfg config.RetryConfig, handlers ...Handler) *Dispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	registry := make(map[string]Handler, len(handlers))
	for _, handler := range handlers {
		registry[handler.Type()] = handler
	}
	return &Dispatcher{
		paymentRepo:    paymentRepo,
		handlers:       registry,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff(),
	}
}

// Process 将待处理支付推进到终态。
// 流转 pending -> processing -> completed/failed；processing 的抢占
// 通过条件更新完成，同一笔支付并发调度最多一方成功。
// 标准类型结算失败不重试，其余类型按指数退避重试至多 maxAttempts 次。
func (d *Dispatcher) Process(ctx context.Context, payment *models.Payment) error {
	handler, ok := d.handlers[payment.PaymentType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerMissing, payment.PaymentType)
	}

	affected, err := d.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusPending},
		constants.PaymentStatusProcessing,
		nil,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: status %s", ErrNotProcessable, payment.Status)
	}
	payment.Status = constants.PaymentStatusProcessing

	settleErr := d.settle(ctx, handler, payment)
	now := time.Now()
	if settleErr != nil {
		if _, err := d.paymentRepo.UpdateStatus(
			payment.ID,
			[]string{constants.PaymentStatusProcessing},
			constants.PaymentStatusFailed,
			map[string]interface{}{"failure_reason": settleErr.Error()},
		); err != nil {
			logger.Errorw("payment_fail_mark_failed",
				"payment_id", payment.ID,
				"error", err,
			)
		}
		payment.Status = constants.PaymentStatusFailed
		payment.FailureReason = settleErr.Error()
		logger.Warnw("payment_settle_failed",
			"payment_id", payment.ID,
			"payment_no", payment.PaymentNo,
			"payment_type", payment.PaymentType,
			"error", settleErr,
		)
		return settleErr
	}

	if _, err := d.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusProcessing},
		constants.PaymentStatusCompleted,
		map[string]interface{}{"completed_at": now},
	); err != nil {
		return err
	}
	payment.Status = constants.PaymentStatusCompleted
	payment.CompletedAt = &now
	logger.Infow("payment_settled",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"payment_type", payment.PaymentType,
	)
	return nil
}

func (d *Dispatcher) settle(ctx context.Context, handler Handler, payment *models.Payment) error {
	operation := func() error {
		return handler.Settle(ctx, payment)
	}
	if payment.PaymentType == constants.PaymentTypeStandard {
		return operation()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.initialBackoff
	// maxAttempts 是总尝试次数，重试次数比它少一
	retries := uint64(d.maxAttempts - 1)
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
}
