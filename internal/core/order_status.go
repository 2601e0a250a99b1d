package core

import "github.com/shopspring/decimal"

// OrderStatus is the lifecycle state of a purchase order.
//
//	approved → partially_delivered → delivered_completed
//
// The state is always re-derived from quantities, so a completed order whose
// delivered quantity later drops moves back to partially_delivered.
type OrderStatus string

const (
	StatusApproved           OrderStatus = "approved"
	StatusPartiallyDelivered OrderStatus = "partially_delivered"
	StatusDeliveredCompleted OrderStatus = "delivered_completed"
)

// tolerance is the quantity slack accepted by "fully delivered" and "nothing
// delivered" checks.
var tolerance = decimal.NewFromFloat(0.01)

// DeriveStatus maps ordered and delivered totals to an order status. It is the
// only place the delivery thresholds live.
func DeriveStatus(orderedQty, deliveredQty decimal.Decimal) OrderStatus {
	if deliveredQty.Abs().LessThan(tolerance) || deliveredQty.IsNegative() {
		return StatusApproved
	}
	if deliveredQty.GreaterThanOrEqual(orderedQty.Sub(tolerance)) {
		return StatusDeliveredCompleted
	}
	return StatusPartiallyDelivered
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusApproved, StatusPartiallyDelivered, StatusDeliveredCompleted:
		return true
	}
	return false
}

// Rank orders statuses by progress: approved < partially_delivered < delivered_completed.
func (s OrderStatus) Rank() int {
	switch s {
	case StatusPartiallyDelivered:
		return 1
	case StatusDeliveredCompleted:
		return 2
	default:
		return 0
	}
}

// IsApproved reports whether the order has reached at least "approved".
func (s OrderStatus) IsApproved() bool {
	return s.Valid()
}

// IsDelivered reports whether any delivery has been recorded.
func (s OrderStatus) IsDelivered() bool {
	return s == StatusPartiallyDelivered || s == StatusDeliveredCompleted
}

// IsSettled reports whether a balance is zero within tolerance.
func IsSettled(balance decimal.Decimal) bool {
	return balance.Abs().LessThan(tolerance)
}
