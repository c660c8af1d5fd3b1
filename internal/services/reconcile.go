package services

import (
	"fmt"
	"time"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// nextBillStatus decides the bill state implied by the cumulative settled
// amount. A bill is paid when settled payments reach the total within the
// configured tolerance, partially paid while the sum is positive but short.
func nextBillStatus(total, settled, tolerance decimal.Decimal) string {
	if settled.GreaterThanOrEqual(total.Sub(tolerance)) {
		return models.BillPaid
	}
	if settled.IsPositive() {
		return models.BillPartiallyPaid
	}
	return models.BillUnpaid
}

// resolveTender validates a payment amount against the bill's outstanding
// balance. Cash tendered above the balance is accepted when the deployment
// allows change-giving: the applied amount is clamped to the balance and the
// difference returned as change due. Any other overpayment is rejected.
func resolveTender(method string, amount, outstanding, tolerance decimal.Decimal, cashOverpayment bool) (applied, changeDue decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if amount.GreaterThan(outstanding.Add(tolerance)) {
		if method == models.MethodCash && cashOverpayment {
			return outstanding, amount.Sub(outstanding), nil
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf(
			"%w: amount %s exceeds outstanding balance %s", ErrValidation, amount.StringFixed(2), outstanding.StringFixed(2))
	}
	return amount, decimal.Zero, nil
}

// completeAndReconcile moves a pending payment to completed and advances the
// owning bill as one logical unit: recompute the settled sum, transition the
// bill, and on full settlement propagate paid status to every linked order.
// It must run inside the caller's transaction with the bill row locked.
// If propagation leaves any order unpaid the whole transaction must be rolled
// back by the caller; the bill is never left paid with unpaid orders.
func completeAndReconcile(
	tx repositories.SQLExecutor,
	billRepo repositories.BillRepository,
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.OrderRepository,
	bill *models.Bill,
	payment *models.Payment,
	settledBy *int64,
	tolerance decimal.Decimal,
	now time.Time,
) (string, error) {
	if err := paymentRepo.CompletePayment(tx, payment.ID, now); err != nil {
		return "", fmt.Errorf("completing payment %s: %w", payment.ID, err)
	}

	settled, err := paymentRepo.SumCompletedByBillID(tx, bill.ID)
	if err != nil {
		return "", fmt.Errorf("recomputing settled sum for bill %s: %w", bill.ID, err)
	}

	newStatus := nextBillStatus(bill.TotalAmount, settled, tolerance)
	if newStatus != bill.PaymentStatus {
		var paidAt *time.Time
		if newStatus == models.BillPaid {
			paidAt = &now
		}
		if err := billRepo.UpdateBillStatus(tx, bill.ID, newStatus, settledBy, paidAt); err != nil {
			return "", fmt.Errorf("transitioning bill %s to %s: %w", bill.ID, newStatus, err)
		}
	}

	if newStatus == models.BillPaid {
		if _, err := orderRepo.MarkOrdersPaid(tx, bill.ID, now); err != nil {
			return "", fmt.Errorf("%w: propagating paid status for bill %s: %v", ErrReconciliation, bill.ID, err)
		}
		remaining, err := orderRepo.CountUnpaidByBillID(tx, bill.ID)
		if err != nil {
			return "", fmt.Errorf("%w: verifying propagation for bill %s: %v", ErrReconciliation, bill.ID, err)
		}
		if remaining > 0 {
			return "", fmt.Errorf("%w: bill %s settled but %d orders remain unpaid", ErrReconciliation, bill.ID, remaining)
		}
	}

	return newStatus, nil
}
