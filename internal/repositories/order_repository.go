package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel_pms_backend/internal/models"

	"github.com/lib/pq"
)

// OrderRepository defines the interface for order-related database operations.
// Payment linkage fields (bill_id, payment_status, paid_at) are only written
// through ClaimForBill and MarkOrdersPaid, both of which are conditional
// updates so concurrent settlement attempts serialize at the row level.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	UpdateOrderStatus(executor SQLExecutor, orderID int64, fromStatus, newStatus string, updatedAt time.Time) error

	// Billing support
	GetUnpaidBillable(location, locationType string, billableStatuses []string) ([]models.Order, error)
	GetOrdersByIDsForUpdate(executor SQLExecutor, orderIDs []int64) ([]models.Order, error)
	ClaimForBill(executor SQLExecutor, billID string, orderIDs []int64) (int64, error)
	GetOrdersByBillID(billID string) ([]models.Order, error)
	MarkOrdersPaid(executor SQLExecutor, billID string, paidAt time.Time) (int64, error)
	CountUnpaidByBillID(executor SQLExecutor, billID string) (int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, location, location_type, subtotal, tax, total, status,
	payment_status, bill_id, paid_at, staff_id, notes, created_at, updated_at`

func scanOrder(s interface{ Scan(...interface{}) error }, o *models.Order) error {
	return s.Scan(
		&o.ID, &o.Location, &o.LocationType, &o.Subtotal, &o.Tax, &o.Total, &o.Status,
		&o.PaymentStatus, &o.BillID, &o.PaidAt, &o.StaffID, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (location, location_type, subtotal, tax, total, status,
	             payment_status, staff_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		order.Location, order.LocationType, order.Subtotal, order.Tax, order.Total, order.Status,
		order.PaymentStatus, order.StaffID, order.Notes, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(orderID int64) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	err := scanOrder(r.db.QueryRow(query, orderID), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + orderColumns + `, COUNT(*) OVER() as total_count FROM orders`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Location != nil && *filters.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location = $%d", argCounter))
		args = append(args, *filters.Location)
		argCounter++
	}
	if filters.LocationType != nil && *filters.LocationType != "" {
		conditions = append(conditions, fmt.Sprintf("location_type = $%d", argCounter))
		args = append(args, *filters.LocationType)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.PaymentStatus != nil && *filters.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argCounter))
		args = append(args, *filters.PaymentStatus)
		argCounter++
	}
	if filters.StaffID != nil {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", argCounter))
		args = append(args, *filters.StaffID)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.Location, &o.LocationType, &o.Subtotal, &o.Tax, &o.Total, &o.Status,
			&o.PaymentStatus, &o.BillID, &o.PaidAt, &o.StaffID, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

// UpdateOrderStatus advances an order only while it still holds the status
// the caller validated against. Zero affected rows mean the order changed or
// disappeared concurrently; the transition must be re-evaluated.
func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID int64, fromStatus, newStatus string, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := executor.Exec(query, newStatus, updatedAt, orderID, fromStatus)
	if err != nil {
		return fmt.Errorf("%w: updating order status for ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status update ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetUnpaidBillable(location, locationType string, billableStatuses []string) ([]models.Order, error) {
	orders := []models.Order{}
	query := `SELECT ` + orderColumns + `
	          FROM orders
	          WHERE location = $1 AND location_type = $2
	            AND payment_status = $3 AND bill_id IS NULL
	            AND status = ANY($4)
	          ORDER BY created_at`

	rows, err := r.db.Query(query, location, locationType, models.OrderPaymentUnpaid, pq.Array(billableStatuses))
	if err != nil {
		return nil, fmt.Errorf("%w: querying unpaid orders at %s %s: %v", ErrDatabaseError, locationType, location, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("%w: scanning unpaid order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating unpaid order rows: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

// GetOrdersByIDsForUpdate fetches the given orders with row locks held for the
// duration of the surrounding transaction, so their monetary fields cannot
// change between the totals snapshot and the bill insert.
func (r *orderRepository) GetOrdersByIDsForUpdate(executor SQLExecutor, orderIDs []int64) ([]models.Order, error) {
	orders := []models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := executor.Query(query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: locking orders for billing: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("%w: scanning locked order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating locked order rows: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

// ClaimForBill conditionally links orders to a bill. The WHERE clause only
// matches orders that are still unpaid and unclaimed, so the affected-row
// count tells the caller whether another bill won a concurrent race.
func (r *orderRepository) ClaimForBill(executor SQLExecutor, billID string, orderIDs []int64) (int64, error) {
	query := `UPDATE orders SET bill_id = $1, updated_at = $2
	          WHERE id = ANY($3) AND bill_id IS NULL AND payment_status = $4`
	result, err := executor.Exec(query, billID, time.Now(), pq.Array(orderIDs), models.OrderPaymentUnpaid)
	if err != nil {
		return 0, fmt.Errorf("%w: claiming orders for bill %s: %v", ErrDatabaseError, billID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for bill claim %s: %v", ErrDatabaseError, billID, err)
	}
	return rowsAffected, nil
}

func (r *orderRepository) GetOrdersByBillID(billID string) ([]models.Order, error) {
	orders := []models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE bill_id = $1 ORDER BY id`

	rows, err := r.db.Query(query, billID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying orders for bill %s: %v", ErrDatabaseError, billID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("%w: scanning bill order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating bill order rows: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

// MarkOrdersPaid propagates a settled bill onto its orders. Re-running it is a
// no-op for orders already marked paid.
func (r *orderRepository) MarkOrdersPaid(executor SQLExecutor, billID string, paidAt time.Time) (int64, error) {
	query := `UPDATE orders SET payment_status = $1, paid_at = $2, updated_at = $2
	          WHERE bill_id = $3 AND payment_status <> $1`
	result, err := executor.Exec(query, models.OrderPaymentPaid, paidAt, billID)
	if err != nil {
		return 0, fmt.Errorf("%w: marking orders paid for bill %s: %v", ErrDatabaseError, billID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for paid propagation on bill %s: %v", ErrDatabaseError, billID, err)
	}
	return rowsAffected, nil
}

func (r *orderRepository) CountUnpaidByBillID(executor SQLExecutor, billID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders WHERE bill_id = $1 AND payment_status <> $2`
	err := executor.QueryRow(query, billID, models.OrderPaymentPaid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting unpaid orders for bill %s: %v", ErrDatabaseError, billID, err)
	}
	return count, nil
}
