package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_pms_backend/internal/models"

	"github.com/lib/pq"
)

// BillRepository defines the interface for bill-related database operations.
type BillRepository interface {
	CreateBill(executor SQLExecutor, bill *models.Bill) error
	GetBillByID(billID string) (*models.Bill, error)
	GetBillByIDForUpdate(executor SQLExecutor, billID string) (*models.Bill, error)
	GetBillByNumberForUpdate(executor SQLExecutor, billNumber string) (*models.Bill, error)
	UpdateBillStatus(executor SQLExecutor, billID, status string, settledBy *int64, paidAt *time.Time) error
}

type billRepository struct {
	db *sql.DB
}

// NewBillRepository creates a new instance of BillRepository.
func NewBillRepository(db *sql.DB) BillRepository {
	return &billRepository{db: db}
}

const billColumns = `id, bill_number, location, location_type, subtotal, tax, total_amount,
	payment_status, settled_by, customer_name, created_at, paid_at`

func scanBill(s interface{ Scan(...interface{}) error }, b *models.Bill) error {
	return s.Scan(
		&b.ID, &b.BillNumber, &b.Location, &b.LocationType, &b.Subtotal, &b.Tax, &b.TotalAmount,
		&b.PaymentStatus, &b.SettledBy, &b.CustomerName, &b.CreatedAt, &b.PaidAt,
	)
}

func (r *billRepository) CreateBill(executor SQLExecutor, bill *models.Bill) error {
	query := `INSERT INTO bills
	            (id, bill_number, location, location_type, subtotal, tax, total_amount,
	             payment_status, customer_name, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now()
	}

	_, err := executor.Exec(query,
		bill.ID, bill.BillNumber, bill.Location, bill.LocationType, bill.Subtotal, bill.Tax,
		bill.TotalAmount, bill.PaymentStatus, bill.CustomerName, bill.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return fmt.Errorf("%w: creating bill: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *billRepository) GetBillByID(billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	err := scanBill(r.db.QueryRow(query, billID), bill)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting bill by ID %s: %v", ErrDatabaseError, billID, err)
	}
	return bill, nil
}

// GetBillByIDForUpdate locks the bill row so concurrent payment completions
// serialize; the cumulative-sum check is never computed from a stale read.
func (r *billRepository) GetBillByIDForUpdate(executor SQLExecutor, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1 FOR UPDATE`
	err := scanBill(executor.QueryRow(query, billID), bill)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking bill %s: %v", ErrDatabaseError, billID, err)
	}
	return bill, nil
}

// GetBillByNumberForUpdate resolves a provider callback's bill number to a
// locked bill row. Bill numbers are the external reconciliation key.
func (r *billRepository) GetBillByNumberForUpdate(executor SQLExecutor, billNumber string) (*models.Bill, error) {
	bill := &models.Bill{}
	query := `SELECT ` + billColumns + ` FROM bills WHERE bill_number = $1 FOR UPDATE`
	err := scanBill(executor.QueryRow(query, billNumber), bill)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking bill by number %s: %v", ErrDatabaseError, billNumber, err)
	}
	return bill, nil
}

func (r *billRepository) UpdateBillStatus(executor SQLExecutor, billID, status string, settledBy *int64, paidAt *time.Time) error {
	query := `UPDATE bills SET payment_status = $1, settled_by = COALESCE($2, settled_by), paid_at = COALESCE($3, paid_at)
	          WHERE id = $4`
	result, err := executor.Exec(query, status, settledBy, paidAt, billID)
	if err != nil {
		return fmt.Errorf("%w: updating bill %s status to %s: %v", ErrDatabaseError, billID, status, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for bill status update %s: %v", ErrDatabaseError, billID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
