package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location types an order or bill can be scoped to.
const (
	LocationTypeTable = "table"
	LocationTypeRoom  = "room"
)

// Order lifecycle statuses (kitchen/service workflow, independent of payment).
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order payment statuses. Payment fields on an order are driven exclusively
// by bill settlement; order endpoints never write them.
const (
	OrderPaymentUnpaid   = "unpaid"
	OrderPaymentPaid     = "paid"
	OrderPaymentRefunded = "refunded"
)

// Order represents a single POS order (dine-in, room service or walk-in).
type Order struct {
	ID            int64           `json:"id"`
	Location      string          `json:"location" db:"location"`
	LocationType  string          `json:"location_type" db:"location_type"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Status        string          `json:"status" db:"status"`
	PaymentStatus string          `json:"payment_status" db:"payment_status"`
	BillID        *string         `json:"bill_id,omitempty" db:"bill_id"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	StaffID       *int64          `json:"staff_id,omitempty" db:"staff_id"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderFilters defines the available filters for querying orders.
// This struct is used by both the service and repository layers.
type OrderFilters struct {
	Location      *string `form:"location"`
	LocationType  *string `form:"location_type"`
	Status        *string `form:"status"`
	PaymentStatus *string `form:"payment_status"`
	StaffID       *int64  `form:"staff_id"`
	Page          int     `form:"page"`
	PageSize      int     `form:"page_size"`
}
