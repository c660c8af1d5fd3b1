package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Data Transfer Objects (DTOs) ---

// CreateBillRequest is used for consolidating selected orders into a bill.
// The client names an explicit subset so a departing guest can be billed
// while the rest of the table keeps ordering.
type CreateBillRequest struct {
	LocationType string  `json:"location_type" binding:"required"`
	Location     string  `json:"location" binding:"required"`
	OrderIDs     []int64 `json:"order_ids" binding:"required"`
	CustomerName *string `json:"customer_name"`
}

// --- BillingService Interface ---

type BillingService interface {
	GetUnpaidOrders(location, locationType string) ([]models.Order, error)
	CreateBill(req CreateBillRequest, staffID int64) (*models.Bill, error)
	GetBillByID(billID string) (*models.Bill, error)
}

type billingService struct {
	orderRepo   repositories.OrderRepository
	billRepo    repositories.BillRepository
	paymentRepo repositories.PaymentRepository
	db          *sql.DB // For managing transactions
	cfg         config.BillingConfig
}

// NewBillingService creates a new instance of BillingService.
func NewBillingService(
	or repositories.OrderRepository,
	br repositories.BillRepository,
	pr repositories.PaymentRepository,
	db *sql.DB,
	cfg config.BillingConfig,
) BillingService {
	return &billingService{
		orderRepo:   or,
		billRepo:    br,
		paymentRepo: pr,
		db:          db,
		cfg:         cfg,
	}
}

// billableStatuses returns the order statuses eligible for billing. By
// default only orders out of the kitchen (served or completed) can be billed;
// deployments that settle up front can relax this to everything but
// cancelled.
func billableStatuses(allowUnserved bool) []string {
	if allowUnserved {
		return []string{
			models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusPreparing,
			models.OrderStatusReady, models.OrderStatusServed, models.OrderStatusCompleted,
		}
	}
	return []string{models.OrderStatusServed, models.OrderStatusCompleted}
}

func (s *billingService) GetUnpaidOrders(location, locationType string) ([]models.Order, error) {
	if err := validateLocation(location, locationType); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.GetUnpaidBillable(location, locationType, billableStatuses(s.cfg.AllowUnservedBilling))
	if err != nil {
		return nil, fmt.Errorf("failed to get unpaid orders: %w", err)
	}
	return orders, nil
}

func (s *billingService) CreateBill(req CreateBillRequest, staffID int64) (*models.Bill, error) {
	if err := validateLocation(req.Location, req.LocationType); err != nil {
		return nil, err
	}
	if len(req.OrderIDs) == 0 {
		return nil, fmt.Errorf("%w: order set is empty", ErrValidation)
	}
	if dup := firstDuplicate(req.OrderIDs); dup != 0 {
		return nil, fmt.Errorf("%w: order %d listed more than once", ErrValidation, dup)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	// Row locks on the orders hold their monetary fields and billing state
	// fixed for the rest of the transaction. A concurrent attempt to bill the
	// same orders blocks here and then fails the checks below.
	orders, err := s.orderRepo.GetOrdersByIDsForUpdate(tx, req.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock orders for billing: %w", err)
	}

	if err := validateOrderSet(orders, req.OrderIDs, req.Location, req.LocationType, billableStatuses(s.cfg.AllowUnservedBilling)); err != nil {
		return nil, err
	}

	subtotal, tax, total := sumOrderTotals(orders)
	now := time.Now()

	bill := &models.Bill{
		ID:            uuid.NewString(),
		BillNumber:    newBillNumber(req.LocationType, req.Location, now),
		Location:      req.Location,
		LocationType:  req.LocationType,
		Subtotal:      subtotal,
		Tax:           tax,
		TotalAmount:   total,
		PaymentStatus: models.BillUnpaid,
		CustomerName:  req.CustomerName,
		CreatedAt:     now,
	}

	if err := s.billRepo.CreateBill(tx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill record: %w", err)
	}

	claimed, err := s.orderRepo.ClaimForBill(tx, bill.ID, req.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to claim orders for bill: %w", err)
	}
	if claimed != int64(len(req.OrderIDs)) {
		// Should not happen while the row locks are held, but the conditional
		// update is the authoritative double-billing guard.
		return nil, fmt.Errorf("%w: claimed %d of %d orders, another bill won the race", ErrConflict, claimed, len(req.OrderIDs))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bill transaction: %w", err)
	}

	for i := range orders {
		orders[i].BillID = &bill.ID
	}
	bill.Orders = orders
	return bill, nil
}

func (s *billingService) GetBillByID(billID string) (*models.Bill, error) {
	bill, err := s.billRepo.GetBillByID(billID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: bill %s", ErrNotFound, billID)
		}
		return nil, fmt.Errorf("failed to get bill by ID: %w", err)
	}

	orders, err := s.orderRepo.GetOrdersByBillID(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for bill %s: %w", billID, err)
	}
	bill.Orders = orders

	payments, err := s.paymentRepo.GetPaymentsByBillID(billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for bill %s: %w", billID, err)
	}
	bill.Payments = payments

	return bill, nil
}

// --- Helpers ---

func validateLocation(location, locationType string) error {
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("%w: location is required", ErrValidation)
	}
	if locationType != models.LocationTypeTable && locationType != models.LocationTypeRoom {
		return fmt.Errorf("%w: unknown location type %q", ErrValidation, locationType)
	}
	return nil
}

func firstDuplicate(ids []int64) int64 {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id
		}
		seen[id] = true
	}
	return 0
}

// validateOrderSet enforces the bill-creation preconditions on the locked
// order rows: every requested order exists, all share the requested location,
// all are unpaid, none already belongs to a bill, and all are billable.
// Already-billed orders produce a conflict naming the offending ids so staff
// see exactly which orders are taken.
func validateOrderSet(orders []models.Order, requestedIDs []int64, location, locationType string, billable []string) error {
	found := make(map[int64]bool, len(orders))
	for _, o := range orders {
		found[o.ID] = true
	}
	var missing []int64
	for _, id := range requestedIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: orders %v do not exist", ErrValidation, missing)
	}

	billableSet := make(map[string]bool, len(billable))
	for _, s := range billable {
		billableSet[s] = true
	}

	var billed []int64
	for _, o := range orders {
		if o.Location != location || o.LocationType != locationType {
			return fmt.Errorf("%w: order %d belongs to %s %s, not %s %s",
				ErrValidation, o.ID, o.LocationType, o.Location, locationType, location)
		}
		if o.BillID != nil {
			billed = append(billed, o.ID)
			continue
		}
		if o.PaymentStatus != models.OrderPaymentUnpaid {
			return fmt.Errorf("%w: order %d is not unpaid (payment status %s)", ErrValidation, o.ID, o.PaymentStatus)
		}
		if !billableSet[o.Status] {
			return fmt.Errorf("%w: order %d has status %s and is not billable", ErrValidation, o.ID, o.Status)
		}
	}
	if len(billed) > 0 {
		return fmt.Errorf("%w: orders %v are already billed", ErrConflict, billed)
	}
	return nil
}

// sumOrderTotals computes the frozen bill totals from the constituent orders.
// Tax was computed per order at creation time and is only summed here.
func sumOrderTotals(orders []models.Order) (subtotal, tax, total decimal.Decimal) {
	for _, o := range orders {
		subtotal = subtotal.Add(o.Subtotal)
		tax = tax.Add(o.Tax)
	}
	return subtotal, tax, subtotal.Add(tax)
}

// newBillNumber builds the human-readable external reconciliation key, e.g.
// B-T12-20250901-9f3c41aa. The UUID-derived suffix keeps concurrent creation
// collision-free.
func newBillNumber(locationType, location string, now time.Time) string {
	prefix := "T"
	if locationType == models.LocationTypeRoom {
		prefix = "R"
	}
	loc := strings.ToUpper(strings.ReplaceAll(location, " ", ""))
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("B-%s%s-%s-%s", prefix, loc, now.Format("20060102"), suffix)
}
