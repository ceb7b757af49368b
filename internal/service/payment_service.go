package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/payguard-next/internal/biometric"
	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/fraud"
	"github.com/payguard-next/internal/gateway"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/processor"
	"github.com/payguard-next/internal/queue"
	"github.com/payguard-next/internal/repository"
	"github.com/payguard-next/internal/rules"
	"github.com/payguard-next/internal/token"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// EventEmitter 生命周期事件出口
type EventEmitter interface {
	EnqueuePaymentCompleted(payload queue.PaymentCompletedPayload, opts ...asynq.Option) error
	EnqueuePaymentReversed(payload queue.PaymentReversedPayload, opts ...asynq.Option) error
	EnqueueFraudDetected(payload queue.FraudDetectedPayload, opts ...asynq.Option) error
}

// PaymentService 支付服务
type PaymentService struct {
	paymentRepo   repository.PaymentRepository
	ruleEngine    *rules.Engine
	fraudDetector *fraud.Detector
	tokenService  *token.Service
	verifier      *biometric.Verifier
	dispatcher    *processor.Dispatcher
	ledger        gateway.Ledger
	emitter       EventEmitter
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, ruleEngine *rules.Engine, fraudDetector *fraud.Detector, tokenService *token.Service, verifier *biometric.Verifier, dispatcher *processor.Dispatcher, ledger gateway.Ledger, emitter EventEmitter) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		ruleEngine:    ruleEngine,
		fraudDetector: fraudDetector,
		tokenService:  tokenService,
		verifier:      verifier,
		dispatcher:    dispatcher,
		ledger:        ledger,
		emitter:       emitter,
	}
}

// InitiatePaymentInput 发起支付输入
type InitiatePaymentInput struct {
	UserID          uint
	FromAccountID   string
	ToAccountID     string
	BeneficiaryName string
	Amount          models.Money
	Currency        string
	PaymentType     string
	Reference       string
	Description     string
}

// InitiatePaymentResult 发起支付结果。
// 二维码/生物识别类型返回待确认的支付单与一次性令牌，
// 其余类型在返回前已推进到终态。
type InitiatePaymentResult struct {
	Payment *models.Payment    `json:"payment"`
	QRToken *token.IssueResult `json:"qr_token,omitempty"`
}

// InitiatePayment 发起支付。
// 顺序固定：账户校验 -> 余额校验 -> 落库 pending -> 规则引擎 ->
// 欺诈检测 -> 类型分发。前两步失败不产生支付单。
func (s *PaymentService) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentResult, error) {
	if err := validateInitiateInput(&input); err != nil {
		return nil, err
	}

	account, err := s.ledger.ValidateAccount(ctx, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	if !account.Exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, input.FromAccountID)
	}
	if !account.Active {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotActive, input.FromAccountID)
	}

	balance, err := s.ledger.CheckBalance(ctx, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(input.Amount.Decimal) {
		return nil, ErrInsufficientBalance
	}

	now := time.Now()
	payment := &models.Payment{
		PaymentNo:       generatePaymentNo(),
		UserID:          input.UserID,
		FromAccountID:   input.FromAccountID,
		ToAccountID:     input.ToAccountID,
		BeneficiaryName: input.BeneficiaryName,
		Amount:          input.Amount,
		Currency:        input.Currency,
		PaymentType:     input.PaymentType,
		Status:          constants.PaymentStatusPending,
		Reference:       input.Reference,
		Description:     input.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		logger.Errorw("payment_create_failed", "error", err)
		return nil, ErrPaymentCreateFailed
	}
	logger.Infow("payment_initiated",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"payment_type", payment.PaymentType,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)

	violation, err := s.ruleEngine.Evaluate(payment)
	if err != nil {
		return nil, err
	}
	if violation != nil {
		s.markFailed(payment, violation.Reason)
		return nil, fmt.Errorf("%w: %s", ErrRuleViolation, violation.Reason)
	}

	fraudResult, err := s.fraudDetector.Evaluate(ctx, payment)
	if err != nil {
		return nil, err
	}
	if fraudResult.IsFraud {
		s.markCancelled(payment, fraudResult.Reason)
		s.emitFraudDetected(payment, fraudResult)
		return nil, fmt.Errorf("%w: %s", ErrFraudBlocked, fraudResult.Reason)
	}

	// 需要持有人确认的类型签发一次性令牌，支付单停留在 pending
	if requiresConfirmation(payment.PaymentType) {
		issued, err := s.tokenService.Issue(token.IssueInput{
			PaymentID:     payment.ID,
			UserID:        payment.UserID,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			FromAccountID: payment.FromAccountID,
			ToAccountID:   payment.ToAccountID,
		})
		if err != nil {
			return nil, err
		}
		return &InitiatePaymentResult{Payment: payment, QRToken: issued}, nil
	}

	if err := s.dispatch(ctx, payment); err != nil {
		return nil, err
	}
	return &InitiatePaymentResult{Payment: payment}, nil
}

// ConfirmPaymentInput 确认支付输入
type ConfirmPaymentInput struct {
	PaymentID uint
	UserID    uint
	Proof     biometric.Proof
}

// ConfirmPayment 持有人确认支付：核销凭证后分发结算。
// 凭证无效时支付单置为 failed。
func (s *PaymentService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStateTransition, payment.Status)
	}
	if !requiresConfirmation(payment.PaymentType) {
		return nil, fmt.Errorf("%w: 该支付类型无需确认", ErrValidation)
	}
	if payment.UserID != input.UserID {
		return nil, fmt.Errorf("%w: 支付单不属于该用户", ErrValidation)
	}

	if _, err := s.verifier.Verify(input.Proof, input.UserID); err != nil {
		s.markFailed(payment, err.Error())
		return nil, err
	}

	if err := s.dispatch(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ProcessPayment 推进待处理支付，供运维或补偿任务重新驱动。
// 需要持有人确认的类型不能跳过确认。
func (s *PaymentService) ProcessPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != constants.PaymentStatusPending {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStateTransition, payment.Status)
	}
	if requiresConfirmation(payment.PaymentType) {
		return nil, fmt.Errorf("%w: 该支付类型需要持有人确认", ErrValidation)
	}
	if err := s.dispatch(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// CancelPayment 取消支付，仅允许非终态（pending/processing）
func (s *PaymentService) CancelPayment(paymentID uint, reason string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	updates := map[string]interface{}{}
	if strings.TrimSpace(reason) != "" {
		updates["failure_reason"] = strings.TrimSpace(reason)
	}
	affected, err := s.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusPending, constants.PaymentStatusProcessing},
		constants.PaymentStatusCancelled,
		updates,
	)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStateTransition, payment.Status)
	}
	payment.Status = constants.PaymentStatusCancelled
	logger.Infow("payment_cancelled",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"reason", reason,
	)
	return payment, nil
}

// ReversePayment 撤销已完成支付并发出撤销事件
func (s *PaymentService) ReversePayment(paymentID uint, reason string) (*models.Payment, error) {
	reason = strings.TrimSpace(reason)
	if !isValidReversalReason(reason) {
		return nil, fmt.Errorf("%w: %s", ErrReversalReasonInvalid, reason)
	}
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	now := time.Now()
	affected, err := s.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusCompleted},
		constants.PaymentStatusReversed,
		map[string]interface{}{
			"reversal_reason": reason,
			"reversed_at":     now,
		},
	)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStateTransition, payment.Status)
	}
	payment.Status = constants.PaymentStatusReversed
	payment.ReversalReason = reason
	payment.ReversedAt = &now
	logger.Infow("payment_reversed",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"reason", reason,
	)
	s.emitReversed(payment)
	return payment, nil
}

// IssuePaymentToken 为待确认支付补发一次性令牌（原令牌过期后使用）
func (s *PaymentService) IssuePaymentToken(paymentID uint, userID uint) (*token.IssueResult, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.UserID != userID {
		return nil, fmt.Errorf("%w: 支付单不属于该用户", ErrValidation)
	}
	if payment.Status != constants.PaymentStatusPending {
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStateTransition, payment.Status)
	}
	if !requiresConfirmation(payment.PaymentType) {
		return nil, fmt.Errorf("%w: 该支付类型不使用令牌", ErrValidation)
	}
	return s.tokenService.Issue(token.IssueInput{
		PaymentID:     payment.ID,
		UserID:        payment.UserID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		FromAccountID: payment.FromAccountID,
		ToAccountID:   payment.ToAccountID,
	})
}

// GetPayment 查询支付单
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetPaymentByNo 根据支付单号查询
func (s *PaymentService) GetPaymentByNo(paymentNo string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(paymentNo)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 查询支付列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}

// dispatch 分发结算并在成功后发出完成事件
func (s *PaymentService) dispatch(ctx context.Context, payment *models.Payment) error {
	if err := s.dispatcher.Process(ctx, payment); err != nil {
		return err
	}
	s.emitCompleted(payment)
	return nil
}

// markFailed 将 pending 支付置为 failed
func (s *PaymentService) markFailed(payment *models.Payment, reason string) {
	if _, err := s.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusPending},
		constants.PaymentStatusFailed,
		map[string]interface{}{"failure_reason": reason},
	); err != nil {
		logger.Errorw("payment_fail_mark_failed",
			"payment_id", payment.ID,
			"error", err,
		)
		return
	}
	payment.Status = constants.PaymentStatusFailed
	payment.FailureReason = reason
}

// markCancelled 将 pending 支付置为 cancelled（风控拦截）
func (s *PaymentService) markCancelled(payment *models.Payment, reason string) {
	if _, err := s.paymentRepo.UpdateStatus(
		payment.ID,
		[]string{constants.PaymentStatusPending},
		constants.PaymentStatusCancelled,
		map[string]interface{}{"failure_reason": reason},
	); err != nil {
		logger.Errorw("payment_cancel_mark_failed",
			"payment_id", payment.ID,
			"error", err,
		)
		return
	}
	payment.Status = constants.PaymentStatusCancelled
	payment.FailureReason = reason
}

func (s *PaymentService) emitCompleted(payment *models.Payment) {
	if s.emitter == nil {
		return
	}
	completedAt := time.Now()
	if payment.CompletedAt != nil {
		completedAt = *payment.CompletedAt
	}
	err := s.emitter.EnqueuePaymentCompleted(queue.PaymentCompletedPayload{
		EventID:         uuid.NewString(),
		PaymentID:       payment.ID,
		PaymentNo:       payment.PaymentNo,
		AccountID:       payment.FromAccountID,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		TransactionType: payment.PaymentType,
		Status:          payment.Status,
		CompletedAt:     completedAt,
	})
	if err != nil {
		// 事件投递失败不回滚支付，记录后由补偿流程处理
		logger.Errorw("payment_completed_event_enqueue_failed",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

func (s *PaymentService) emitReversed(payment *models.Payment) {
	if s.emitter == nil {
		return
	}
	reversedAt := time.Now()
	if payment.ReversedAt != nil {
		reversedAt = *payment.ReversedAt
	}
	originalDate := payment.CreatedAt
	if payment.CompletedAt != nil {
		originalDate = *payment.CompletedAt
	}
	err := s.emitter.EnqueuePaymentReversed(queue.PaymentReversedPayload{
		EventID:             uuid.NewString(),
		PaymentID:           payment.ID,
		PaymentNo:           payment.PaymentNo,
		AccountID:           payment.FromAccountID,
		Amount:              payment.Amount,
		Currency:            payment.Currency,
		ReversalReason:      payment.ReversalReason,
		OriginalPaymentDate: originalDate,
		ReversedAt:          reversedAt,
	})
	if err != nil {
		logger.Errorw("payment_reversed_event_enqueue_failed",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

func (s *PaymentService) emitFraudDetected(payment *models.Payment, result *fraud.Result) {
	if s.emitter == nil {
		return
	}
	err := s.emitter.EnqueueFraudDetected(queue.FraudDetectedPayload{
		FraudID:    uuid.NewString(),
		PaymentID:  payment.ID,
		PaymentNo:  payment.PaymentNo,
		AccountID:  payment.FromAccountID,
		UserID:     payment.UserID,
		Amount:     payment.Amount,
		FraudType:  result.FraudType,
		Reason:     result.Reason,
		DetectedAt: time.Now(),
		Action:     constants.FraudActionBlocked,
	})
	if err != nil {
		logger.Errorw("fraud_detected_event_enqueue_failed",
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

func validateInitiateInput(input *InitiatePaymentInput) error {
	input.FromAccountID = strings.TrimSpace(input.FromAccountID)
	input.ToAccountID = strings.TrimSpace(input.ToAccountID)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.UserID == 0 {
		return fmt.Errorf("%w: user_id 必填", ErrValidation)
	}
	if input.FromAccountID == "" {
		return fmt.Errorf("%w: from_account_id 必填", ErrValidation)
	}
	if input.ToAccountID == "" {
		return fmt.Errorf("%w: to_account_id 必填", ErrValidation)
	}
	if input.Currency == "" {
		return fmt.Errorf("%w: currency 必填", ErrValidation)
	}
	if input.Amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: 金额必须大于零", ErrValidation)
	}
	if !isValidPaymentType(input.PaymentType) {
		return fmt.Errorf("%w: 不支持的支付类型 %s", ErrValidation, input.PaymentType)
	}
	return nil
}

func isValidPaymentType(paymentType string) bool {
	switch paymentType {
	case constants.PaymentTypeStandard,
		constants.PaymentTypeInstant,
		constants.PaymentTypeBiometric,
		constants.PaymentTypeQRCode:
		return true
	}
	return false
}

// requiresConfirmation 判断支付类型是否需要持有人出示凭证
func requiresConfirmation(paymentType string) bool {
	return paymentType == constants.PaymentTypeBiometric || paymentType == constants.PaymentTypeQRCode
}

func isValidReversalReason(reason string) bool {
	switch reason {
	case constants.ReversalReasonCustomerRequest,
		constants.ReversalReasonDuplicate,
		constants.ReversalReasonOperationError:
		return true
	}
	return false
}

func generatePaymentNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("PG%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
