package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentRepoTest(t *testing.T) (*GormPaymentRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPaymentRepository(db), db
}

func createRepoTestPayment(t *testing.T, repo *GormPaymentRepository, paymentNo, status string) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		PaymentNo:     paymentNo,
		UserID:        1,
		FromAccountID: "ACC-1",
		ToAccountID:   "ACC-2",
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Currency:      "USD",
		PaymentType:   constants.PaymentTypeStandard,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func TestUpdateStatusGuardedByFromStatuses(t *testing.T) {
	repo, _ := setupPaymentRepoTest(t)
	payment := createRepoTestPayment(t, repo, "PG-1", constants.PaymentStatusPending)

	affected, err := repo.UpdateStatus(payment.ID, []string{constants.PaymentStatusPending}, constants.PaymentStatusProcessing, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected row, got %d", affected)
	}

	// 当前状态不在 fromStatuses 中，不发生任何变更
	affected, err = repo.UpdateStatus(payment.ID, []string{constants.PaymentStatusPending}, constants.PaymentStatusCompleted, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("guarded update must not match, got %d affected", affected)
	}

	stored, err := repo.GetByID(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.Status != constants.PaymentStatusProcessing {
		t.Fatalf("unexpected status: %s", stored.Status)
	}
}

func TestCountCompletedSince(t *testing.T) {
	repo, db := setupPaymentRepoTest(t)
	now := time.Now()

	insert := func(paymentNo, status string, createdAt time.Time) {
		payment := &models.Payment{
			PaymentNo:     paymentNo,
			UserID:        1,
			FromAccountID: "ACC-1",
			ToAccountID:   "ACC-2",
			Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			Currency:      "USD",
			PaymentType:   constants.PaymentTypeStandard,
			Status:        status,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		}
		if err := db.Create(payment).Error; err != nil {
			t.Fatalf("insert payment failed: %v", err)
		}
	}

	insert("PG-in-1", constants.PaymentStatusCompleted, now.Add(-10*time.Minute))
	insert("PG-in-2", constants.PaymentStatusCompleted, now.Add(-30*time.Minute))
	insert("PG-old", constants.PaymentStatusCompleted, now.Add(-2*time.Hour))
	insert("PG-pending", constants.PaymentStatusPending, now.Add(-5*time.Minute))

	count, err := repo.CountCompletedSince("ACC-1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 completed in window, got %d", count)
	}

	count, err = repo.CountCompletedSince("ACC-OTHER", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 for other account, got %d", count)
	}
}

func TestListWithFilter(t *testing.T) {
	repo, _ := setupPaymentRepoTest(t)
	createRepoTestPayment(t, repo, "PG-a", constants.PaymentStatusPending)
	createRepoTestPayment(t, repo, "PG-b", constants.PaymentStatusCompleted)
	createRepoTestPayment(t, repo, "PG-c", constants.PaymentStatusCompleted)

	payments, total, err := repo.List(PaymentListFilter{
		Status:   constants.PaymentStatusCompleted,
		Page:     1,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(payments) != 2 {
		t.Fatalf("expected 2 completed payments, got total=%d len=%d", total, len(payments))
	}
}
