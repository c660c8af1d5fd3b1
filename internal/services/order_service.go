package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// --- Data Transfer Objects (DTOs) ---

// CreateOrderRequest is used for creating a new order. Item-level detail
// lives in the POS front end; the order store carries monetary rollups only.
type CreateOrderRequest struct {
	Location     string          `json:"location" binding:"required"`
	LocationType string          `json:"location_type" binding:"required"`
	Subtotal     decimal.Decimal `json:"subtotal" binding:"required"`
	Notes        *string         `json:"notes"`
}

// UpdateOrderStatusRequest is used for updating the status of an order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- OrderService Interface ---

type OrderService interface {
	CreateOrder(req CreateOrderRequest, staffID int64) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error)
}

type orderService struct {
	orderRepo repositories.OrderRepository
	db        *sql.DB
	cfg       config.BillingConfig
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(or repositories.OrderRepository, db *sql.DB, cfg config.BillingConfig) OrderService {
	return &orderService{orderRepo: or, db: db, cfg: cfg}
}

func (s *orderService) CreateOrder(req CreateOrderRequest, staffID int64) (*models.Order, error) {
	if err := validateLocation(req.Location, req.LocationType); err != nil {
		return nil, err
	}
	if !req.Subtotal.IsPositive() {
		return nil, fmt.Errorf("%w: subtotal must be positive", ErrValidation)
	}

	// Tax is fixed per order at creation time; billing later sums it without
	// recomputing.
	tax := req.Subtotal.Mul(s.cfg.TaxRate).Round(2)

	order := &models.Order{
		Location:      req.Location,
		LocationType:  req.LocationType,
		Subtotal:      req.Subtotal,
		Tax:           tax,
		Total:         req.Subtotal.Add(tax),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.OrderPaymentUnpaid,
		StaffID:       &staffID,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if _, err := s.orderRepo.CreateOrder(s.db, order); err != nil {
		return nil, fmt.Errorf("failed to create order record: %w", err)
	}
	return order, nil
}

func (s *orderService) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders, totalCount, err := s.orderRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}
	return order, nil
}

func (s *orderService) UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if !canTransitionOrderStatus(order.Status, req.Status) {
		return nil, fmt.Errorf("%w: cannot move order %d from %s to %s", ErrValidation, orderID, order.Status, req.Status)
	}

	// The conditional update only matches the snapshot status the transition
	// was validated against; a concurrent change makes it a conflict, never a
	// lifecycle violation.
	if err := s.orderRepo.UpdateOrderStatus(s.db, orderID, order.Status, req.Status, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d was modified concurrently", ErrConflict, orderID)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = req.Status
	return order, nil
}

// Service-lifecycle rank. The workflow only moves forward; skipping steps is
// allowed (a walk-in order can go straight to served).
var orderStatusRank = map[string]int{
	models.OrderStatusPending:   0,
	models.OrderStatusConfirmed: 1,
	models.OrderStatusPreparing: 2,
	models.OrderStatusReady:     3,
	models.OrderStatusServed:    4,
	models.OrderStatusCompleted: 5,
}

// canTransitionOrderStatus enforces the monotonic kitchen/service lifecycle.
// Cancellation is only possible before the order reaches the guest.
func canTransitionOrderStatus(from, to string) bool {
	if from == models.OrderStatusCancelled {
		return false
	}
	if to == models.OrderStatusCancelled {
		return orderStatusRank[from] < orderStatusRank[models.OrderStatusServed]
	}
	fromRank, fromOK := orderStatusRank[from]
	toRank, toOK := orderStatusRank[to]
	if !fromOK || !toOK {
		return false
	}
	return toRank > fromRank
}
