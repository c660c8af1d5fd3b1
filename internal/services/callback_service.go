package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"
	"hotel_pms_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Data Transfer Objects (DTOs) ---

// MobileMoneyCallback is the provider's asynchronous payment notification.
// ProviderRef is the idempotency key: redelivered notifications carry the
// same reference. Failure notifications often carry a zero amount.
type MobileMoneyCallback struct {
	ProviderRef string          `json:"provider_ref" binding:"required"`
	BillNumber  string          `json:"bill_number" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Phone       string          `json:"phone"`
	ResultCode  int             `json:"result_code"`
	ResultDesc  string          `json:"result_desc"`
}

// CallbackResult reports how a callback was applied. Replayed marks an
// already-processed notification; Anomaly marks a successful callback that
// arrived after the bill was settled by other means.
type CallbackResult struct {
	Replayed   bool   `json:"replayed"`
	Anomaly    bool   `json:"anomaly"`
	BillStatus string `json:"bill_status,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
}

// --- CallbackService Interface ---

type CallbackService interface {
	HandleMobileMoney(req MobileMoneyCallback) (*CallbackResult, error)
}

type callbackService struct {
	billRepo    repositories.BillRepository
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	db          *sql.DB // For managing transactions
	cfg         config.BillingConfig
}

// NewCallbackService creates a new instance of CallbackService.
func NewCallbackService(
	br repositories.BillRepository,
	pr repositories.PaymentRepository,
	or repositories.OrderRepository,
	db *sql.DB,
	cfg config.BillingConfig,
) CallbackService {
	return &callbackService{
		billRepo:    br,
		paymentRepo: pr,
		orderRepo:   or,
		db:          db,
		cfg:         cfg,
	}
}

// HandleMobileMoney applies a provider notification to the matching bill.
// Signature verification happens in the handler before this is called, so no
// transaction is opened for unauthenticated payloads.
func (s *callbackService) HandleMobileMoney(req MobileMoneyCallback) (*CallbackResult, error) {
	if req.ResultCode == 0 && !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: successful callback must carry a positive amount", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := s.apply(tx, req, time.Now())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit callback transaction: %w", err)
	}
	return result, nil
}

func (s *callbackService) apply(tx repositories.SQLExecutor, req MobileMoneyCallback, now time.Time) (*CallbackResult, error) {
	existing, err := s.paymentRepo.GetPaymentByProviderRef(tx, req.ProviderRef)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up payment by provider ref: %w", err)
	}
	if existing != nil && existing.IsTerminal() {
		// Webhook redelivery of an already-processed notification.
		return &CallbackResult{Replayed: true, PaymentID: existing.ID}, nil
	}

	bill, err := s.billRepo.GetBillByNumberForUpdate(tx, req.BillNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no bill with number %s", ErrNotFound, req.BillNumber)
		}
		return nil, fmt.Errorf("failed to lock bill for callback: %w", err)
	}

	if existing == nil {
		// Concurrent deliveries of one notification serialize on the bill
		// lock. A loser re-reads here and sees the winner's committed
		// payment instead of racing into a provider_ref unique violation.
		existing, err = s.paymentRepo.GetPaymentByProviderRef(tx, req.ProviderRef)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to re-check payment by provider ref: %w", err)
		}
		if existing != nil && existing.IsTerminal() {
			return &CallbackResult{Replayed: true, PaymentID: existing.ID}, nil
		}
	}

	if req.ResultCode != 0 {
		return s.recordFailure(tx, bill, existing, req, now)
	}

	settled, err := s.paymentRepo.SumCompletedByBillID(tx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed payments: %w", err)
	}
	outstanding := bill.TotalAmount.Sub(settled)

	// A successful callback on a bill that was already settled (or whose
	// balance the callback amount would overshoot) is money the provider
	// took that the bill cannot absorb. Record it as an anomaly for manual
	// reconciliation; never double-apply, never silently discard.
	if bill.PaymentStatus == models.BillPaid || req.Amount.GreaterThan(outstanding.Add(s.cfg.Tolerance)) {
		return s.recordAnomaly(tx, bill, existing, req, now)
	}

	payment := existing
	if payment == nil {
		payment = s.newCallbackPayment(bill, req, now, false)
		if err := s.paymentRepo.CreatePayment(tx, payment); err != nil {
			return nil, fmt.Errorf("failed to create callback payment: %w", err)
		}
	} else if !payment.Amount.Equal(req.Amount) {
		// The provider confirmed a different amount than the push asked for.
		// Supersede the pending payment with the confirmed amount.
		if err := s.paymentRepo.FailPayment(tx, payment.ID, "superseded: callback confirmed a different amount"); err != nil {
			return nil, fmt.Errorf("failed to supersede pending payment: %w", err)
		}
		payment = s.newCallbackPayment(bill, req, now, false)
		if err := s.paymentRepo.CreatePayment(tx, payment); err != nil {
			return nil, fmt.Errorf("failed to create superseding payment: %w", err)
		}
	}

	newStatus, err := completeAndReconcile(tx, s.billRepo, s.paymentRepo, s.orderRepo, bill, payment, nil, s.cfg.Tolerance, now)
	if err != nil {
		if errors.Is(err, ErrReconciliation) {
			utils.LogReconciliationFailure(err, bill.ID, map[string]interface{}{
				"payment_id":   payment.ID,
				"provider_ref": req.ProviderRef,
			})
		}
		return nil, err
	}

	return &CallbackResult{BillStatus: newStatus, PaymentID: payment.ID}, nil
}

// recordFailure closes out a failed push. The record keeps whatever amount the
// provider reported, clamped at zero; the amount > 0 rule only binds payments
// that can ever count toward settlement.
func (s *callbackService) recordFailure(tx repositories.SQLExecutor, bill *models.Bill, existing *models.Payment, req MobileMoneyCallback, now time.Time) (*CallbackResult, error) {
	reason := fmt.Sprintf("provider result %d: %s", req.ResultCode, req.ResultDesc)
	if existing != nil {
		if err := s.paymentRepo.FailPayment(tx, existing.ID, reason); err != nil {
			return nil, fmt.Errorf("failed to fail pending payment: %w", err)
		}
		return &CallbackResult{BillStatus: bill.PaymentStatus, PaymentID: existing.ID}, nil
	}

	payment := s.newCallbackPayment(bill, req, now, false)
	if payment.Amount.IsNegative() {
		payment.Amount = decimal.Zero
	}
	payment.Status = models.PaymentFailed
	payment.FailureReason = &reason
	payment.CompletedAt = &now
	if err := s.paymentRepo.CreatePayment(tx, payment); err != nil {
		return nil, fmt.Errorf("failed to record failed callback payment: %w", err)
	}
	return &CallbackResult{BillStatus: bill.PaymentStatus, PaymentID: payment.ID}, nil
}

func (s *callbackService) recordAnomaly(tx repositories.SQLExecutor, bill *models.Bill, existing *models.Payment, req MobileMoneyCallback, now time.Time) (*CallbackResult, error) {
	if existing != nil {
		// The pending push record itself cannot become anomalous; close it
		// out and keep the anomaly on its own row.
		if err := s.paymentRepo.FailPayment(tx, existing.ID, "superseded: bill settled before callback arrived"); err != nil {
			return nil, fmt.Errorf("failed to close pending payment on anomaly: %w", err)
		}
	}

	payment := s.newCallbackPayment(bill, req, now, true)
	payment.Status = models.PaymentCompleted
	payment.CompletedAt = &now
	if existing != nil {
		// provider_ref is unique; it stays on the superseded row.
		payment.ProviderRef = nil
		note := "anomaly for provider ref " + req.ProviderRef
		payment.FailureReason = &note
	}
	if err := s.paymentRepo.CreatePayment(tx, payment); err != nil {
		return nil, fmt.Errorf("failed to record anomalous callback payment: %w", err)
	}

	utils.LogError(fmt.Errorf("late or excess provider callback on bill %s", bill.BillNumber),
		"callback recorded as anomaly, manual reconciliation required")

	return &CallbackResult{Anomaly: true, BillStatus: bill.PaymentStatus, PaymentID: payment.ID}, nil
}

func (s *callbackService) newCallbackPayment(bill *models.Bill, req MobileMoneyCallback, now time.Time, anomaly bool) *models.Payment {
	providerRef := req.ProviderRef
	phone := req.Phone
	return &models.Payment{
		ID:            uuid.NewString(),
		PaymentNumber: newPaymentNumber(now),
		BillID:        bill.ID,
		Amount:        req.Amount,
		Method:        models.MethodMobileMoney,
		Status:        models.PaymentPending,
		ProviderRef:   &providerRef,
		Phone:         &phone,
		IsAnomaly:     anomaly,
		CreatedAt:     now,
	}
}
