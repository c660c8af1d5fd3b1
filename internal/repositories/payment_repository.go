package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_pms_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines the interface for payment-related database operations.
type PaymentRepository interface {
	CreatePayment(executor SQLExecutor, payment *models.Payment) error
	GetPaymentByID(paymentID string) (*models.Payment, error)
	GetPaymentByProviderRef(executor SQLExecutor, providerRef string) (*models.Payment, error)
	GetPaymentsByBillID(billID string) ([]models.Payment, error)
	SetProviderRef(executor SQLExecutor, paymentID, providerRef string) error
	CompletePayment(executor SQLExecutor, paymentID string, completedAt time.Time) error
	FailPayment(executor SQLExecutor, paymentID, reason string) error
	SumCompletedByBillID(executor SQLExecutor, billID string) (decimal.Decimal, error)
	FailStalePending(executor SQLExecutor, method string, cutoff time.Time, reason string) (int64, error)
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, payment_number, bill_id, amount, method, status, provider_ref,
	phone, card_ref, room_charge_ref, failure_reason, is_anomaly, processed_by, created_at, completed_at`

func scanPayment(s interface{ Scan(...interface{}) error }, p *models.Payment) error {
	return s.Scan(
		&p.ID, &p.PaymentNumber, &p.BillID, &p.Amount, &p.Method, &p.Status, &p.ProviderRef,
		&p.Phone, &p.CardRef, &p.RoomChargeRef, &p.FailureReason, &p.IsAnomaly, &p.ProcessedBy,
		&p.CreatedAt, &p.CompletedAt,
	)
}

func (r *paymentRepository) CreatePayment(executor SQLExecutor, payment *models.Payment) error {
	query := `INSERT INTO payments
	            (id, payment_number, bill_id, amount, method, status, provider_ref,
	             phone, card_ref, room_charge_ref, failure_reason, is_anomaly, processed_by,
	             created_at, completed_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	_, err := executor.Exec(query,
		payment.ID, payment.PaymentNumber, payment.BillID, payment.Amount, payment.Method,
		payment.Status, payment.ProviderRef, payment.Phone, payment.CardRef, payment.RoomChargeRef,
		payment.FailureReason, payment.IsAnomaly, payment.ProcessedBy,
		payment.CreatedAt, payment.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return fmt.Errorf("%w: creating payment: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *paymentRepository) GetPaymentByID(paymentID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	err := scanPayment(r.db.QueryRow(query, paymentID), payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting payment by ID %s: %v", ErrDatabaseError, paymentID, err)
	}
	return payment, nil
}

// GetPaymentByProviderRef looks a payment up by the provider's transaction
// reference, the idempotency key for webhook deliveries.
func (r *paymentRepository) GetPaymentByProviderRef(executor SQLExecutor, providerRef string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_ref = $1`
	err := scanPayment(executor.QueryRow(query, providerRef), payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting payment by provider ref %s: %v", ErrDatabaseError, providerRef, err)
	}
	return payment, nil
}

func (r *paymentRepository) GetPaymentsByBillID(billID string) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE bill_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(query, billID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying payments for bill %s: %v", ErrDatabaseError, billID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning payment: %v", ErrDatabaseError, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payment rows: %v", ErrDatabaseError, err)
	}
	return payments, nil
}

// SetProviderRef attaches the provider's transaction reference to a payment
// once the outbound push has been accepted.
func (r *paymentRepository) SetProviderRef(executor SQLExecutor, paymentID, providerRef string) error {
	query := `UPDATE payments SET provider_ref = $1 WHERE id = $2`
	result, err := executor.Exec(query, providerRef, paymentID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
		}
		return fmt.Errorf("%w: setting provider ref on payment %s: %v", ErrDatabaseError, paymentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for provider ref update %s: %v", ErrDatabaseError, paymentID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePayment moves a pending payment to completed. The status guard in
// the WHERE clause makes terminal payments immutable; completing one twice
// returns ErrNotFound.
func (r *paymentRepository) CompletePayment(executor SQLExecutor, paymentID string, completedAt time.Time) error {
	query := `UPDATE payments SET status = $1, completed_at = $2
	          WHERE id = $3 AND status = $4`
	result, err := executor.Exec(query, models.PaymentCompleted, completedAt, paymentID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%w: completing payment %s: %v", ErrDatabaseError, paymentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for payment completion %s: %v", ErrDatabaseError, paymentID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepository) FailPayment(executor SQLExecutor, paymentID, reason string) error {
	query := `UPDATE payments SET status = $1, failure_reason = $2, completed_at = $3
	          WHERE id = $4 AND status = $5`
	result, err := executor.Exec(query, models.PaymentFailed, reason, time.Now(), paymentID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%w: failing payment %s: %v", ErrDatabaseError, paymentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for payment failure %s: %v", ErrDatabaseError, paymentID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SumCompletedByBillID returns the cumulative settled amount for a bill.
// Anomalous payments do not count toward settlement.
func (r *paymentRepository) SumCompletedByBillID(executor SQLExecutor, billID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments
	          WHERE bill_id = $1 AND status = $2 AND is_anomaly = FALSE`
	err := executor.QueryRow(query, billID, models.PaymentCompleted).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing completed payments for bill %s: %v", ErrDatabaseError, billID, err)
	}
	return sum, nil
}

// FailStalePending is the reconciliation sweep: payments of the given method
// left pending past the cutoff are failed so the bill becomes reattemptable.
// The conditional update makes concurrent sweeps safe.
func (r *paymentRepository) FailStalePending(executor SQLExecutor, method string, cutoff time.Time, reason string) (int64, error) {
	query := `UPDATE payments SET status = $1, failure_reason = $2, completed_at = $3
	          WHERE method = $4 AND status = $5 AND created_at < $6`
	result, err := executor.Exec(query, models.PaymentFailed, reason, time.Now(), method, models.PaymentPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: failing stale pending payments: %v", ErrDatabaseError, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for stale payment sweep: %v", ErrDatabaseError, err)
	}
	return rowsAffected, nil
}
