package services

import (
	"errors"
	"testing"
	"time"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNextBillStatus(t *testing.T) {
	tolerance := dec("0.01")
	tests := []struct {
		name    string
		total   string
		settled string
		want    string
	}{
		{"nothing settled", "100.00", "0.00", models.BillUnpaid},
		{"partial", "100.00", "40.00", models.BillPartiallyPaid},
		{"exact", "100.00", "100.00", models.BillPaid},
		{"within tolerance", "100.00", "99.99", models.BillPaid},
		{"just outside tolerance", "100.00", "99.98", models.BillPartiallyPaid},
		{"over total", "100.00", "100.50", models.BillPaid},
		{"tiny partial", "100.00", "0.01", models.BillPartiallyPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextBillStatus(dec(tt.total), dec(tt.settled), tolerance)
			if got != tt.want {
				t.Errorf("nextBillStatus(%s, %s) = %s, want %s", tt.total, tt.settled, got, tt.want)
			}
		})
	}
}

func TestResolveTender(t *testing.T) {
	tolerance := dec("0.01")
	tests := []struct {
		name            string
		method          string
		amount          string
		outstanding     string
		cashOverpayment bool
		wantApplied     string
		wantChange      string
		wantErr         bool
	}{
		{"exact cash", models.MethodCash, "50.00", "50.00", true, "50.00", "0", false},
		{"cash with change", models.MethodCash, "60.00", "50.00", true, "50.00", "10.00", false},
		{"cash overpayment disabled", models.MethodCash, "60.00", "50.00", false, "", "", true},
		{"card overpayment rejected", models.MethodCard, "60.00", "50.00", true, "", "", true},
		{"mobile money within tolerance", models.MethodMobileMoney, "50.01", "50.00", false, "50.01", "0", false},
		{"partial payment", models.MethodCard, "20.00", "50.00", false, "20.00", "0", false},
		{"zero amount", models.MethodCash, "0.00", "50.00", true, "", "", true},
		{"negative amount", models.MethodCash, "-5.00", "50.00", true, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, change, err := resolveTender(tt.method, dec(tt.amount), dec(tt.outstanding), tolerance, tt.cashOverpayment)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got applied=%s change=%s", applied, change)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !applied.Equal(dec(tt.wantApplied)) {
				t.Errorf("applied = %s, want %s", applied, tt.wantApplied)
			}
			if !change.Equal(dec(tt.wantChange)) {
				t.Errorf("changeDue = %s, want %s", change, tt.wantChange)
			}
		})
	}
}

// Fakes embed the repository interface so only the methods under test need
// implementing; calling anything else panics, which is what we want.

type fakeBillRepo struct {
	repositories.BillRepository
	updatedStatus string
	updatedPaidAt *time.Time
}

func (f *fakeBillRepo) UpdateBillStatus(executor repositories.SQLExecutor, billID, status string, settledBy *int64, paidAt *time.Time) error {
	f.updatedStatus = status
	f.updatedPaidAt = paidAt
	return nil
}

type fakePaymentRepo struct {
	repositories.PaymentRepository
	completedIDs []string
	settledSum   decimal.Decimal
	completeErr  error
}

func (f *fakePaymentRepo) CompletePayment(executor repositories.SQLExecutor, paymentID string, completedAt time.Time) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completedIDs = append(f.completedIDs, paymentID)
	return nil
}

func (f *fakePaymentRepo) SumCompletedByBillID(executor repositories.SQLExecutor, billID string) (decimal.Decimal, error) {
	return f.settledSum, nil
}

type fakeOrderRepo struct {
	repositories.OrderRepository
	markedPaid      bool
	remainingUnpaid int
}

func (f *fakeOrderRepo) MarkOrdersPaid(executor repositories.SQLExecutor, billID string, paidAt time.Time) (int64, error) {
	f.markedPaid = true
	return 2, nil
}

func (f *fakeOrderRepo) CountUnpaidByBillID(executor repositories.SQLExecutor, billID string) (int, error) {
	return f.remainingUnpaid, nil
}

func testBill(total string) *models.Bill {
	return &models.Bill{
		ID:            "bill-1",
		BillNumber:    "B-T5-20250901-abcd1234",
		TotalAmount:   dec(total),
		PaymentStatus: models.BillUnpaid,
	}
}

func testPayment(amount string) *models.Payment {
	return &models.Payment{
		ID:     "pay-1",
		BillID: "bill-1",
		Amount: dec(amount),
		Status: models.PaymentPending,
	}
}

func TestCompleteAndReconcilePartialPayment(t *testing.T) {
	billRepo := &fakeBillRepo{}
	paymentRepo := &fakePaymentRepo{settledSum: dec("40.00")}
	orderRepo := &fakeOrderRepo{}

	status, err := completeAndReconcile(nil, billRepo, paymentRepo, orderRepo,
		testBill("100.00"), testPayment("40.00"), nil, dec("0.01"), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != models.BillPartiallyPaid {
		t.Errorf("status = %s, want %s", status, models.BillPartiallyPaid)
	}
	if billRepo.updatedStatus != models.BillPartiallyPaid {
		t.Errorf("bill transitioned to %s, want %s", billRepo.updatedStatus, models.BillPartiallyPaid)
	}
	if billRepo.updatedPaidAt != nil {
		t.Error("paid_at must not be set on a partial payment")
	}
	if orderRepo.markedPaid {
		t.Error("orders must not be marked paid while the bill is outstanding")
	}
}

func TestCompleteAndReconcileFullSettlement(t *testing.T) {
	billRepo := &fakeBillRepo{}
	paymentRepo := &fakePaymentRepo{settledSum: dec("100.00")}
	orderRepo := &fakeOrderRepo{}

	staffID := int64(7)
	status, err := completeAndReconcile(nil, billRepo, paymentRepo, orderRepo,
		testBill("100.00"), testPayment("100.00"), &staffID, dec("0.01"), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != models.BillPaid {
		t.Errorf("status = %s, want %s", status, models.BillPaid)
	}
	if billRepo.updatedPaidAt == nil {
		t.Error("paid_at must be set on full settlement")
	}
	if !orderRepo.markedPaid {
		t.Error("paid status must propagate to the bill's orders")
	}
	if len(paymentRepo.completedIDs) != 1 || paymentRepo.completedIDs[0] != "pay-1" {
		t.Errorf("completed payments = %v, want [pay-1]", paymentRepo.completedIDs)
	}
}

func TestCompleteAndReconcilePropagationFailure(t *testing.T) {
	billRepo := &fakeBillRepo{}
	paymentRepo := &fakePaymentRepo{settledSum: dec("100.00")}
	orderRepo := &fakeOrderRepo{remainingUnpaid: 1}

	_, err := completeAndReconcile(nil, billRepo, paymentRepo, orderRepo,
		testBill("100.00"), testPayment("100.00"), nil, dec("0.01"), time.Now())
	if err == nil {
		t.Fatal("expected reconciliation error when an order stays unpaid")
	}
	if !errors.Is(err, ErrReconciliation) {
		t.Errorf("expected ErrReconciliation, got %v", err)
	}
}

func TestCompleteAndReconcileTerminalPayment(t *testing.T) {
	billRepo := &fakeBillRepo{}
	paymentRepo := &fakePaymentRepo{completeErr: repositories.ErrNotFound}
	orderRepo := &fakeOrderRepo{}

	_, err := completeAndReconcile(nil, billRepo, paymentRepo, orderRepo,
		testBill("100.00"), testPayment("100.00"), nil, dec("0.01"), time.Now())
	if err == nil {
		t.Fatal("expected error when the payment is no longer pending")
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}
