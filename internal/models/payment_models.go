package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	MethodCash        = "cash"
	MethodMobileMoney = "mobile_money"
	MethodCard        = "card"
	MethodRoomCharge  = "room_charge"
)

// Payment statuses. pending -> completed or pending -> failed, exactly once;
// terminal states are immutable.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment records one settlement attempt against a bill. Anomalous payments
// (e.g. a successful provider callback arriving after the bill was settled by
// cash) are retained with IsAnomaly set and excluded from settlement sums.
type Payment struct {
	ID            string          `json:"id"`
	PaymentNumber string          `json:"payment_number" db:"payment_number"`
	BillID        string          `json:"bill_id" db:"bill_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        string          `json:"method" db:"method"`
	Status        string          `json:"status" db:"status"`
	ProviderRef   *string         `json:"provider_ref,omitempty" db:"provider_ref"`
	Phone         *string         `json:"phone,omitempty" db:"phone"`
	CardRef       *string         `json:"card_ref,omitempty" db:"card_ref"`
	RoomChargeRef *string         `json:"room_charge_ref,omitempty" db:"room_charge_ref"`
	FailureReason *string         `json:"failure_reason,omitempty" db:"failure_reason"`
	IsAnomaly     bool            `json:"is_anomaly" db:"is_anomaly"`
	ProcessedBy   *int64          `json:"processed_by,omitempty" db:"processed_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the payment has reached an immutable state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentFailed
}
