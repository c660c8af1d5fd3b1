package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill payment statuses. A bill only ever moves forward:
// unpaid -> partially_paid -> paid, or unpaid -> paid in one shot.
const (
	BillUnpaid        = "unpaid"
	BillPartiallyPaid = "partially_paid"
	BillPaid          = "paid"
)

// Bill consolidates one or more orders at a single location for settlement.
// Monetary totals are frozen at creation time; later order edits do not
// retroactively change a bill.
type Bill struct {
	ID            string          `json:"id"`
	BillNumber    string          `json:"bill_number" db:"bill_number"`
	Location      string          `json:"location" db:"location"`
	LocationType  string          `json:"location_type" db:"location_type"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentStatus string          `json:"payment_status" db:"payment_status"`
	SettledBy     *int64          `json:"settled_by,omitempty" db:"settled_by"`
	CustomerName  *string         `json:"customer_name,omitempty" db:"customer_name"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" db:"paid_at"`

	Orders   []Order   `json:"orders,omitempty"`
	Payments []Payment `json:"payments,omitempty"`
}
