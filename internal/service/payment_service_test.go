package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/payguard-next/internal/biometric"
	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/fraud"
	"github.com/payguard-next/internal/gateway"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/processor"
	"github.com/payguard-next/internal/queue"
	"github.com/payguard-next/internal/repository"
	"github.com/payguard-next/internal/rules"
	"github.com/payguard-next/internal/token"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeLedger 账户网关测试替身
type fakeLedger struct {
	accounts map[string]gateway.AccountStatus
	balances map[string]decimal.Decimal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[string]gateway.AccountStatus{},
		balances: map[string]decimal.Decimal{},
	}
}

func (l *fakeLedger) addAccount(accountID string, active bool, balance string) {
	l.accounts[accountID] = gateway.AccountStatus{AccountID: accountID, Exists: true, Active: active}
	l.balances[accountID] = decimal.RequireFromString(balance)
}

func (l *fakeLedger) ValidateAccount(_ context.Context, accountID string) (*gateway.AccountStatus, error) {
	status, ok := l.accounts[accountID]
	if !ok {
		return &gateway.AccountStatus{AccountID: accountID, Exists: false}, nil
	}
	return &status, nil
}

func (l *fakeLedger) CheckBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	return l.balances[accountID], nil
}

// recordingEmitter 记录发出的生命周期事件
type recordingEmitter struct {
	completed []queue.PaymentCompletedPayload
	reversed  []queue.PaymentReversedPayload
	fraud     []queue.FraudDetectedPayload
}

func (e *recordingEmitter) EnqueuePaymentCompleted(payload queue.PaymentCompletedPayload, _ ...asynq.Option) error {
	e.completed = append(e.completed, payload)
	return nil
}

func (e *recordingEmitter) EnqueuePaymentReversed(payload queue.PaymentReversedPayload, _ ...asynq.Option) error {
	e.reversed = append(e.reversed, payload)
	return nil
}

func (e *recordingEmitter) EnqueueFraudDetected(payload queue.FraudDetectedPayload, _ ...asynq.Option) error {
	e.fraud = append(e.fraud, payload)
	return nil
}

type paymentServiceEnv struct {
	svc         *PaymentService
	paymentRepo repository.PaymentRepository
	ruleRepo    repository.RuleRepository
	blacklist   fraud.Blacklist
	ledger      *fakeLedger
	emitter     *recordingEmitter
}

func setupPaymentServiceTest(t *testing.T) *paymentServiceEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Payment{}, &models.PaymentRule{}, &models.QrToken{}, &models.PaymentEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	blacklist := fraud.NewMemoryBlacklist()
	ledger := newFakeLedger()
	ledger.addAccount("ACC-SOURCE", true, "100000")
	ledger.addAccount("ACC-POOR", true, "5.00")
	ledger.addAccount("ACC-FROZEN", false, "100000")

	emitter := &recordingEmitter{}
	tokens := token.NewService(tokenRepo, config.QRTokenConfig{ExpireMinutes: 5})
	svc := NewPaymentService(
		paymentRepo,
		rules.NewEngine(ruleRepo),
		fraud.NewDetector(blacklist, paymentRepo, config.FraudConfig{}),
		tokens,
		biometric.NewVerifier(tokens, true),
		processor.NewDispatcher(paymentRepo, config.RetryConfig{MaxAttempts: 3, InitialBackoffMS: 1}, processor.DefaultHandlers()...),
		ledger,
		emitter,
	)
	return &paymentServiceEnv{
		svc:         svc,
		paymentRepo: paymentRepo,
		ruleRepo:    ruleRepo,
		blacklist:   blacklist,
		ledger:      ledger,
		emitter:     emitter,
	}
}

func initiateInput(paymentType, amount string) InitiatePaymentInput {
	return InitiatePaymentInput{
		UserID:          1,
		FromAccountID:   "ACC-SOURCE",
		ToAccountID:     "ACC-DEST",
		BeneficiaryName: "测试收款人",
		Amount:          models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		Currency:        "USD",
		PaymentType:     paymentType,
	}
}

func countPayments(t *testing.T, env *paymentServiceEnv) int64 {
	t.Helper()
	_, total, err := env.paymentRepo.List(repository.PaymentListFilter{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	return total
}

func TestInitiateStandardPaymentCompletes(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "250.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if result.Payment.Status != constants.PaymentStatusCompleted {
		t.Fatalf("unexpected status: %s", result.Payment.Status)
	}
	if result.Payment.PaymentNo == "" {
		t.Fatalf("payment_no should be generated")
	}
	if result.QRToken != nil {
		t.Fatalf("standard type must not issue a token")
	}
	if len(env.emitter.completed) != 1 {
		t.Fatalf("expected exactly 1 completed event, got %d", len(env.emitter.completed))
	}
	event := env.emitter.completed[0]
	if event.PaymentID != result.Payment.ID || event.EventID == "" {
		t.Fatalf("completed event not populated: %+v", event)
	}
}

func TestInitiateBlockedBySuspiciousAmount(t *testing.T) {
	env := setupPaymentServiceTest(t)

	_, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "10000.01"))
	if !errors.Is(err, ErrFraudBlocked) {
		t.Fatalf("expected ErrFraudBlocked, got: %v", err)
	}

	payments, _, err := env.paymentRepo.List(repository.PaymentListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(payments) != 1 || payments[0].Status != constants.PaymentStatusCancelled {
		t.Fatalf("blocked payment should be cancelled, got %+v", payments)
	}
	if len(env.emitter.fraud) != 1 {
		t.Fatalf("expected 1 fraud event, got %d", len(env.emitter.fraud))
	}
	if env.emitter.fraud[0].FraudType != constants.FraudTypeSuspiciousAmount {
		t.Fatalf("unexpected fraud type: %s", env.emitter.fraud[0].FraudType)
	}
	if len(env.emitter.completed) != 0 {
		t.Fatalf("blocked payment must not emit a completed event")
	}
}

func TestInitiateThresholdAmountPasses(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "10000.00"))
	if err != nil {
		t.Fatalf("threshold amount should pass: %v", err)
	}
	if result.Payment.Status != constants.PaymentStatusCompleted {
		t.Fatalf("unexpected status: %s", result.Payment.Status)
	}
}

func TestInitiateBlockedByBlacklist(t *testing.T) {
	env := setupPaymentServiceTest(t)
	if err := env.blacklist.Add(context.Background(), "ACC-SOURCE"); err != nil {
		t.Fatalf("blacklist add failed: %v", err)
	}

	_, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "10.00"))
	if !errors.Is(err, ErrFraudBlocked) {
		t.Fatalf("expected ErrFraudBlocked, got: %v", err)
	}
	if len(env.emitter.fraud) != 1 || env.emitter.fraud[0].FraudType != constants.FraudTypeBlacklist {
		t.Fatalf("expected blacklist fraud event, got %+v", env.emitter.fraud)
	}
}

func TestInitiateRuleViolationFailsPayment(t *testing.T) {
	env := setupPaymentServiceTest(t)
	if err := env.ruleRepo.Create(&models.PaymentRule{
		Name:       "single-transfer-cap",
		Priority:   100,
		Enabled:    true,
		Conditions: models.JSON(map[string]interface{}{"max_amount": "500"}),
	}); err != nil {
		t.Fatalf("create rule failed: %v", err)
	}

	_, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "600.00"))
	if !errors.Is(err, ErrRuleViolation) {
		t.Fatalf("expected ErrRuleViolation, got: %v", err)
	}

	payments, _, err := env.paymentRepo.List(repository.PaymentListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(payments) != 1 || payments[0].Status != constants.PaymentStatusFailed {
		t.Fatalf("rule violation should fail the payment, got %+v", payments)
	}
	if payments[0].FailureReason == "" {
		t.Fatalf("failure_reason should carry the violation reason")
	}
	// 规则先于欺诈检测，被规则拦下的支付不进入风控
	if len(env.emitter.fraud) != 0 {
		t.Fatalf("rule violation must not reach fraud detection, got %+v", env.emitter.fraud)
	}
}

func TestInitiateInsufficientBalanceCreatesNothing(t *testing.T) {
	env := setupPaymentServiceTest(t)
	input := initiateInput(constants.PaymentTypeStandard, "10.00")
	input.FromAccountID = "ACC-POOR"

	_, err := env.svc.InitiatePayment(context.Background(), input)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}
	if total := countPayments(t, env); total != 0 {
		t.Fatalf("no payment row should exist, got %d", total)
	}
}

func TestInitiateAccountChecks(t *testing.T) {
	env := setupPaymentServiceTest(t)

	input := initiateInput(constants.PaymentTypeStandard, "10.00")
	input.FromAccountID = "ACC-MISSING"
	if _, err := env.svc.InitiatePayment(context.Background(), input); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got: %v", err)
	}

	input.FromAccountID = "ACC-FROZEN"
	if _, err := env.svc.InitiatePayment(context.Background(), input); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got: %v", err)
	}

	if total := countPayments(t, env); total != 0 {
		t.Fatalf("account check failures must not create payments, got %d", total)
	}
}

func TestInitiateValidation(t *testing.T) {
	env := setupPaymentServiceTest(t)

	input := initiateInput(constants.PaymentTypeStandard, "10.00")
	input.Amount = models.NewMoneyFromDecimal(decimal.Zero)
	if _, err := env.svc.InitiatePayment(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero amount should be rejected, got: %v", err)
	}

	input = initiateInput("cheque", "10.00")
	if _, err := env.svc.InitiatePayment(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown payment type should be rejected, got: %v", err)
	}
}

func TestQRCodePaymentConfirmFlow(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if result.Payment.Status != constants.PaymentStatusPending {
		t.Fatalf("qr payment should stay pending, got %s", result.Payment.Status)
	}
	if result.QRToken == nil || result.QRToken.Token == "" {
		t.Fatalf("qr payment should carry a token")
	}
	if len(env.emitter.completed) != 0 {
		t.Fatalf("pending payment must not emit a completed event")
	}

	confirmed, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		PaymentID: result.Payment.ID,
		UserID:    1,
		Proof:     biometric.Proof{Method: constants.ProofMethodQRCode, Token: result.QRToken.Token},
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != constants.PaymentStatusCompleted {
		t.Fatalf("unexpected status after confirm: %s", confirmed.Status)
	}
	if len(env.emitter.completed) != 1 {
		t.Fatalf("expected 1 completed event, got %d", len(env.emitter.completed))
	}

	// 已完成的支付不能再次确认
	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		PaymentID: result.Payment.ID,
		UserID:    1,
		Proof:     biometric.Proof{Method: constants.ProofMethodQRCode, Token: result.QRToken.Token},
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
}

func TestConfirmWithInvalidTokenFailsPayment(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeBiometric, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		PaymentID: result.Payment.ID,
		UserID:    1,
		Proof:     biometric.Proof{Method: constants.ProofMethodQRCode, Token: "forged-token"},
	})
	if !errors.Is(err, ErrBiometricVerification) {
		t.Fatalf("expected ErrBiometricVerification, got: %v", err)
	}

	stored, err := env.paymentRepo.GetByID(result.Payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusFailed {
		t.Fatalf("invalid proof should fail the payment, got %s", stored.Status)
	}
	if len(env.emitter.completed) != 0 {
		t.Fatalf("failed payment must not emit a completed event")
	}
}

func TestConfirmOwnershipEnforced(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		PaymentID: result.Payment.ID,
		UserID:    99,
		Proof:     biometric.Proof{Method: constants.ProofMethodQRCode, Token: result.QRToken.Token},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for foreign user, got: %v", err)
	}
}

func TestProcessPaymentRejectsConfirmableType(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	_, err = env.svc.ProcessPayment(context.Background(), result.Payment.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("confirmable type must not bypass confirmation, got: %v", err)
	}
}

func TestCancelPendingPayment(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	cancelled, err := env.svc.CancelPayment(result.Payment.ID, "用户放弃支付")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.PaymentStatusCancelled {
		t.Fatalf("unexpected status: %s", cancelled.Status)
	}

	// 已取消的支付不能再取消
	if _, err := env.svc.CancelPayment(result.Payment.ID, ""); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
}

func TestReversePaymentFlow(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "120.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	reversed, err := env.svc.ReversePayment(result.Payment.ID, constants.ReversalReasonCustomerRequest)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if reversed.Status != constants.PaymentStatusReversed {
		t.Fatalf("unexpected status: %s", reversed.Status)
	}
	if reversed.ReversedAt == nil || reversed.ReversalReason != constants.ReversalReasonCustomerRequest {
		t.Fatalf("reversal metadata not recorded: %+v", reversed)
	}
	if len(env.emitter.reversed) != 1 {
		t.Fatalf("expected 1 reversed event, got %d", len(env.emitter.reversed))
	}

	// 已撤销的支付不能再次撤销
	_, err = env.svc.ReversePayment(result.Payment.ID, constants.ReversalReasonCustomerRequest)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}
	if len(env.emitter.reversed) != 1 {
		t.Fatalf("failed reversal must not emit another event")
	}
}

func TestReversePendingPaymentRejected(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	_, err = env.svc.ReversePayment(result.Payment.ID, constants.ReversalReasonDuplicate)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got: %v", err)
	}

	stored, err := env.paymentRepo.GetByID(result.Payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusPending {
		t.Fatalf("rejected reversal must not mutate the payment, got %s", stored.Status)
	}
}

func TestReverseInvalidReason(t *testing.T) {
	env := setupPaymentServiceTest(t)
	_, err := env.svc.ReversePayment(1, "because")
	if !errors.Is(err, ErrReversalReasonInvalid) {
		t.Fatalf("expected ErrReversalReasonInvalid, got: %v", err)
	}
}

func TestIssuePaymentTokenReissues(t *testing.T) {
	env := setupPaymentServiceTest(t)

	result, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeQRCode, "88.00"))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	reissued, err := env.svc.IssuePaymentToken(result.Payment.ID, 1)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if reissued.Token == result.QRToken.Token {
		t.Fatalf("reissued token must differ from the original")
	}

	// 新令牌可以正常完成确认
	confirmed, err := env.svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{
		PaymentID: result.Payment.ID,
		UserID:    1,
		Proof:     biometric.Proof{Method: constants.ProofMethodQRCode, Token: reissued.Token},
	})
	if err != nil {
		t.Fatalf("confirm with reissued token failed: %v", err)
	}
	if confirmed.Status != constants.PaymentStatusCompleted {
		t.Fatalf("unexpected status: %s", confirmed.Status)
	}
}

func TestFrequencyAnomalyBlocksPayment(t *testing.T) {
	env := setupPaymentServiceTest(t)
	now := time.Now()
	for i := 0; i < 11; i++ {
		payment := &models.Payment{
			PaymentNo:     fmt.Sprintf("PG-history-%d", i),
			UserID:        1,
			FromAccountID: "ACC-SOURCE",
			ToAccountID:   "ACC-DEST",
			Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			Currency:      "USD",
			PaymentType:   constants.PaymentTypeStandard,
			Status:        constants.PaymentStatusCompleted,
			CreatedAt:     now.Add(-time.Duration(i) * time.Minute),
			UpdatedAt:     now,
		}
		if err := env.paymentRepo.Create(payment); err != nil {
			t.Fatalf("seed history failed: %v", err)
		}
	}

	_, err := env.svc.InitiatePayment(context.Background(), initiateInput(constants.PaymentTypeStandard, "10.00"))
	if !errors.Is(err, ErrFraudBlocked) {
		t.Fatalf("expected ErrFraudBlocked on frequency anomaly, got: %v", err)
	}
	if len(env.emitter.fraud) != 1 || env.emitter.fraud[0].FraudType != constants.FraudTypeSuspiciousAmount {
		t.Fatalf("frequency anomaly should report suspicious_amount, got %+v", env.emitter.fraud)
	}
}
