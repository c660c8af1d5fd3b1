package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"
	"hotel_pms_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PushInitiator is the outbound side of the mobile-money provider.
// Satisfied by provider.Client.
type PushInitiator interface {
	InitiatePush(ctx context.Context, phone string, amount decimal.Decimal, billNumber string) (string, error)
}

// --- Data Transfer Objects (DTOs) ---

// RecordPaymentRequest is used for recording a payment against a bill.
// Method-specific fields are only consulted for their method.
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Method        string          `json:"method" binding:"required"`
	Phone         *string         `json:"phone"`
	CardRef       *string         `json:"card_ref"`
	RoomChargeRef *string         `json:"room_charge_ref"`
}

// PaymentResult is returned to the settling client. ChangeDue is non-zero
// only for cash tendered above the outstanding balance.
type PaymentResult struct {
	Payment    *models.Payment `json:"payment"`
	BillStatus string          `json:"bill_status"`
	ChangeDue  decimal.Decimal `json:"change_due"`
}

// --- PaymentService Interface ---

type PaymentService interface {
	RecordPayment(billID string, req RecordPaymentRequest, staffID int64) (*PaymentResult, error)
	SweepStalePending() (int64, error)
}

type paymentService struct {
	billRepo    repositories.BillRepository
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	db          *sql.DB // For managing transactions
	cfg         config.BillingConfig
	push        PushInitiator
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	br repositories.BillRepository,
	pr repositories.PaymentRepository,
	or repositories.OrderRepository,
	db *sql.DB,
	cfg config.BillingConfig,
	push PushInitiator,
) PaymentService {
	return &paymentService{
		billRepo:    br,
		paymentRepo: pr,
		orderRepo:   or,
		db:          db,
		cfg:         cfg,
		push:        push,
	}
}

func validMethod(method string) bool {
	switch method {
	case models.MethodCash, models.MethodMobileMoney, models.MethodCard, models.MethodRoomCharge:
		return true
	default:
		return false
	}
}

// RecordPayment applies a payment to a bill. Synchronous methods (cash, card,
// room charge) complete inside the same transaction that locks the bill, so
// two concurrent payments on one bill serialize on the row lock and the
// cumulative-sum check never reads stale state. Mobile money creates a
// pending payment, commits, and only then talks to the provider.
func (s *paymentService) RecordPayment(billID string, req RecordPaymentRequest, staffID int64) (*PaymentResult, error) {
	if !validMethod(req.Method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.Method)
	}
	if req.Method == models.MethodMobileMoney && (req.Phone == nil || strings.TrimSpace(*req.Phone) == "") {
		return nil, fmt.Errorf("%w: phone is required for mobile money payments", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	bill, err := s.billRepo.GetBillByIDForUpdate(tx, billID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: bill %s", ErrNotFound, billID)
		}
		return nil, fmt.Errorf("failed to lock bill for payment: %w", err)
	}
	if bill.PaymentStatus == models.BillPaid {
		return nil, fmt.Errorf("%w: bill %s is already paid", ErrConflict, bill.BillNumber)
	}

	settled, err := s.paymentRepo.SumCompletedByBillID(tx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed payments: %w", err)
	}
	outstanding := bill.TotalAmount.Sub(settled)

	applied, changeDue, err := resolveTender(req.Method, req.Amount, outstanding, s.cfg.Tolerance, s.cfg.CashOverpayment)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payment := &models.Payment{
		ID:            uuid.NewString(),
		PaymentNumber: newPaymentNumber(now),
		BillID:        bill.ID,
		Amount:        applied,
		Method:        req.Method,
		Status:        models.PaymentPending,
		Phone:         req.Phone,
		CardRef:       req.CardRef,
		RoomChargeRef: req.RoomChargeRef,
		ProcessedBy:   &staffID,
		CreatedAt:     now,
	}
	if err := s.paymentRepo.CreatePayment(tx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	if req.Method == models.MethodMobileMoney {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit pending payment: %w", err)
		}
		return s.initiatePush(bill, payment)
	}

	newStatus, err := completeAndReconcile(tx, s.billRepo, s.paymentRepo, s.orderRepo, bill, payment, &staffID, s.cfg.Tolerance, now)
	if err != nil {
		if errors.Is(err, ErrReconciliation) {
			utils.LogReconciliationFailure(err, bill.ID, map[string]interface{}{
				"payment_id":  payment.ID,
				"bill_number": bill.BillNumber,
			})
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}

	payment.Status = models.PaymentCompleted
	payment.CompletedAt = &now
	return &PaymentResult{Payment: payment, BillStatus: newStatus, ChangeDue: changeDue}, nil
}

// initiatePush runs after the pending payment is committed, so no data-layer
// lock is held while waiting on the provider. A push that cannot be delivered
// marks the payment failed and surfaces ErrProvider.
func (s *paymentService) initiatePush(bill *models.Bill, payment *models.Payment) (*PaymentResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	providerRef, err := s.push.InitiatePush(ctx, *payment.Phone, payment.Amount, bill.BillNumber)
	if err != nil {
		if failErr := s.paymentRepo.FailPayment(s.db, payment.ID, "provider push failed: "+err.Error()); failErr != nil {
			utils.LogError(failErr, "failed to mark payment failed after push error")
		}
		return nil, fmt.Errorf("%w: initiating mobile money push: %v", ErrProvider, err)
	}

	if err := s.paymentRepo.SetProviderRef(s.db, payment.ID, providerRef); err != nil {
		return nil, fmt.Errorf("failed to record provider ref: %w", err)
	}
	payment.ProviderRef = &providerRef

	return &PaymentResult{Payment: payment, BillStatus: bill.PaymentStatus, ChangeDue: decimal.Zero}, nil
}

// SweepStalePending fails mobile-money payments left pending beyond the
// configured window so their bills become reattemptable. Pending payments
// never count toward settlement, so no bill state needs recomputing.
func (s *paymentService) SweepStalePending() (int64, error) {
	cutoff := time.Now().Add(-s.cfg.PendingTimeout)
	swept, err := s.paymentRepo.FailStalePending(s.db, models.MethodMobileMoney, cutoff, "pending payment timed out")
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale pending payments: %w", err)
	}
	return swept, nil
}

// newPaymentNumber builds a unique human-readable payment identifier, e.g.
// P-20250901-4e1b22cd.
func newPaymentNumber(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("P-%s-%s", now.Format("20060102"), suffix)
}
