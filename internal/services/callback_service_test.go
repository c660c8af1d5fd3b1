package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

type cbBillRepo struct {
	repositories.BillRepository
	bill *models.Bill
}

func (f *cbBillRepo) GetBillByNumberForUpdate(executor repositories.SQLExecutor, billNumber string) (*models.Bill, error) {
	if f.bill == nil || f.bill.BillNumber != billNumber {
		return nil, repositories.ErrNotFound
	}
	return f.bill, nil
}

func (f *cbBillRepo) UpdateBillStatus(executor repositories.SQLExecutor, billID, status string, settledBy *int64, paidAt *time.Time) error {
	f.bill.PaymentStatus = status
	return nil
}

// cbPaymentRepo serves GetPaymentByProviderRef from a queue so tests can vary
// what the lookup sees before and after the bill lock.
type cbPaymentRepo struct {
	repositories.PaymentRepository
	byRefQueue []*models.Payment
	created    []*models.Payment
	failed     []string
	settledSum decimal.Decimal
}

func (f *cbPaymentRepo) GetPaymentByProviderRef(executor repositories.SQLExecutor, providerRef string) (*models.Payment, error) {
	if len(f.byRefQueue) == 0 {
		return nil, repositories.ErrNotFound
	}
	next := f.byRefQueue[0]
	f.byRefQueue = f.byRefQueue[1:]
	if next == nil {
		return nil, repositories.ErrNotFound
	}
	return next, nil
}

func (f *cbPaymentRepo) CreatePayment(executor repositories.SQLExecutor, payment *models.Payment) error {
	f.created = append(f.created, payment)
	return nil
}

func (f *cbPaymentRepo) FailPayment(executor repositories.SQLExecutor, paymentID, reason string) error {
	f.failed = append(f.failed, paymentID)
	return nil
}

func (f *cbPaymentRepo) CompletePayment(executor repositories.SQLExecutor, paymentID string, completedAt time.Time) error {
	return nil
}

func (f *cbPaymentRepo) SumCompletedByBillID(executor repositories.SQLExecutor, billID string) (decimal.Decimal, error) {
	return f.settledSum, nil
}

func callbackServiceWith(billRepo repositories.BillRepository, paymentRepo repositories.PaymentRepository, orderRepo repositories.OrderRepository) *callbackService {
	return &callbackService{
		billRepo:    billRepo,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		cfg:         config.BillingConfig{Tolerance: dec("0.01")},
	}
}

func callbackBill() *models.Bill {
	return &models.Bill{
		ID:            "bill-1",
		BillNumber:    "B-T12-20250901-abcd",
		TotalAmount:   dec("100.00"),
		PaymentStatus: models.BillUnpaid,
	}
}

func TestCallbackZeroAmountFailureIsRecorded(t *testing.T) {
	paymentRepo := &cbPaymentRepo{}
	svc := callbackServiceWith(&cbBillRepo{bill: callbackBill()}, paymentRepo, &fakeOrderRepo{})

	result, err := svc.apply(nil, MobileMoneyCallback{
		ProviderRef: "MM-FAIL-1",
		BillNumber:  "B-T12-20250901-abcd",
		ResultCode:  1,
		ResultDesc:  "insufficient funds",
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(paymentRepo.created) != 1 {
		t.Fatalf("created %d payments, want 1", len(paymentRepo.created))
	}
	got := paymentRepo.created[0]
	if got.Status != models.PaymentFailed {
		t.Errorf("status = %s, want %s", got.Status, models.PaymentFailed)
	}
	if !got.Amount.Equal(decimal.Zero) {
		t.Errorf("amount = %s, want 0", got.Amount)
	}
	if got.FailureReason == nil || !strings.Contains(*got.FailureReason, "insufficient funds") {
		t.Errorf("failure reason should carry the provider diagnostic, got %v", got.FailureReason)
	}
	if result.PaymentID != got.ID {
		t.Errorf("result.PaymentID = %s, want %s", result.PaymentID, got.ID)
	}
}

func TestCallbackNegativeAmountFailureClampedToZero(t *testing.T) {
	paymentRepo := &cbPaymentRepo{}
	svc := callbackServiceWith(&cbBillRepo{bill: callbackBill()}, paymentRepo, &fakeOrderRepo{})

	_, err := svc.apply(nil, MobileMoneyCallback{
		ProviderRef: "MM-FAIL-2",
		BillNumber:  "B-T12-20250901-abcd",
		Amount:      dec("-5.00"),
		ResultCode:  1,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paymentRepo.created) != 1 {
		t.Fatalf("created %d payments, want 1", len(paymentRepo.created))
	}
	if !paymentRepo.created[0].Amount.Equal(decimal.Zero) {
		t.Errorf("amount = %s, want 0", paymentRepo.created[0].Amount)
	}
}

func TestCallbackSuccessRequiresPositiveAmount(t *testing.T) {
	svc := NewCallbackService(nil, nil, nil, nil, config.BillingConfig{})

	_, err := svc.HandleMobileMoney(MobileMoneyCallback{
		ProviderRef: "MM-1",
		BillNumber:  "B-T12-x",
		ResultCode:  0,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a zero-amount success callback, got %v", err)
	}
}

func TestCallbackRefRecheckedAfterBillLock(t *testing.T) {
	winner := &models.Payment{
		ID:     "pay-winner",
		BillID: "bill-1",
		Amount: dec("100.00"),
		Status: models.PaymentCompleted,
	}
	// First lookup misses, the post-lock re-check sees the concurrent
	// delivery's committed payment.
	paymentRepo := &cbPaymentRepo{byRefQueue: []*models.Payment{nil, winner}}
	svc := callbackServiceWith(&cbBillRepo{bill: callbackBill()}, paymentRepo, &fakeOrderRepo{})

	result, err := svc.apply(nil, MobileMoneyCallback{
		ProviderRef: "MM-RACE",
		BillNumber:  "B-T12-20250901-abcd",
		Amount:      dec("100.00"),
		ResultCode:  0,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Replayed {
		t.Error("replayed = false, want true")
	}
	if result.PaymentID != "pay-winner" {
		t.Errorf("PaymentID = %s, want pay-winner", result.PaymentID)
	}
	if len(paymentRepo.created) != 0 {
		t.Errorf("created %d payments, want 0", len(paymentRepo.created))
	}
}
