package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DashboardSourceItem is an order item joined to its parent order. Order is
// nil when the item's parent header no longer exists.
type DashboardSourceItem struct {
	Item  PurchaseOrderItem
	Order *PurchaseOrder
}

// ApprovedBlock summarizes one side's approved orders for a catalog key.
type ApprovedBlock struct {
	POQuantity                 decimal.Decimal
	POUnitPrice                decimal.Decimal
	POTotalPrice               decimal.Decimal
	LeadTime                   string
	DueDate                    *time.Time
	PONumber                   string
	CustomerSupplierName       string
	Status                     OrderStatus
	BalanceQuantityUndelivered decimal.Decimal
	// DueDateDisplay is "Completed", the due date as YYYY-MM-DD, or "-".
	DueDateDisplay string
	Overdue        bool
	// Inconsistent marks balances that disagree with the side status.
	Inconsistent bool
}

// DeliveredBlock summarizes one side's delivered orders for a catalog key.
type DeliveredBlock struct {
	DeliveredQuantity   decimal.Decimal
	DeliveredUnitPrice  decimal.Decimal
	DeliveredTotalPrice decimal.Decimal
	PenaltyPercentage   *decimal.Decimal
	PenaltyAmount       *decimal.Decimal
	InvoiceNo           string
}

// CombinedRow is one dashboard line: a catalog key with the supplier and
// customer halves side by side. A nil block means that side has no data.
type CombinedRow struct {
	CatalogKey
	SupplierApproved  *ApprovedBlock  `json:"supplier_approved"`
	SupplierDelivered *DeliveredBlock `json:"supplier_delivered"`
	CustomerApproved  *ApprovedBlock  `json:"customer_approved"`
	CustomerDelivered *DeliveredBlock `json:"customer_delivered"`
	// Error is set when the row could not be built; all blocks are then nil.
	Error string `json:"error,omitempty"`
}

func fixed2(d decimal.Decimal) string { return d.StringFixed(2) }

func fixed2Ptr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

// MarshalJSON renders amounts with two decimals.
func (b ApprovedBlock) MarshalJSON() ([]byte, error) {
	var due *string
	if b.DueDate != nil {
		s := b.DueDate.Format(time.DateOnly)
		due = &s
	}
	return json.Marshal(struct {
		POQuantity                 string  `json:"po_quantity"`
		POUnitPrice                string  `json:"po_unit_price"`
		POTotalPrice               string  `json:"po_total_price"`
		LeadTime                   string  `json:"lead_time"`
		DueDate                    *string `json:"due_date"`
		DueDateDisplay             string  `json:"due_date_display"`
		Overdue                    bool    `json:"overdue"`
		PONumber                   string  `json:"po_number"`
		CustomerSupplierName       string  `json:"customer_supplier_name"`
		Status                     string  `json:"status"`
		BalanceQuantityUndelivered string  `json:"balance_quantity_undelivered"`
		Inconsistent               bool    `json:"inconsistent,omitempty"`
	}{
		POQuantity:                 fixed2(b.POQuantity),
		POUnitPrice:                fixed2(b.POUnitPrice),
		POTotalPrice:               fixed2(b.POTotalPrice),
		LeadTime:                   b.LeadTime,
		DueDate:                    due,
		DueDateDisplay:             b.DueDateDisplay,
		Overdue:                    b.Overdue,
		PONumber:                   b.PONumber,
		CustomerSupplierName:       b.CustomerSupplierName,
		Status:                     string(b.Status),
		BalanceQuantityUndelivered: fixed2(b.BalanceQuantityUndelivered),
		Inconsistent:               b.Inconsistent,
	})
}

// MarshalJSON renders amounts with two decimals.
func (b DeliveredBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DeliveredQuantity   string  `json:"delivered_quantity"`
		DeliveredUnitPrice  string  `json:"delivered_unit_price"`
		DeliveredTotalPrice string  `json:"delivered_total_price"`
		PenaltyPercentage   *string `json:"penalty_percentage"`
		PenaltyAmount       *string `json:"penalty_amount"`
		InvoiceNo           string  `json:"invoice_no"`
	}{
		DeliveredQuantity:   fixed2(b.DeliveredQuantity),
		DeliveredUnitPrice:  fixed2(b.DeliveredUnitPrice),
		DeliveredTotalPrice: fixed2(b.DeliveredTotalPrice),
		PenaltyPercentage:   fixed2Ptr(b.PenaltyPercentage),
		PenaltyAmount:       fixed2Ptr(b.PenaltyAmount),
		InvoiceNo:           b.InvoiceNo,
	})
}

// DashboardFilter narrows GetDashboard. AsOfDate is YYYY-MM-DD; empty means today.
type DashboardFilter struct {
	Search   string
	AsOfDate string
	Page     int
	Limit    int
}

// DashboardPage is one page of combined rows.
type DashboardPage struct {
	Rows       []CombinedRow `json:"rows"`
	AsOfDate   string        `json:"as_of_date"`
	Pagination Page          `json:"pagination"`
}

// DashboardService serves the combined supplier/customer dashboard.
type DashboardService interface {
	// GetDashboard returns one row per catalog key, paged over keys.
	GetDashboard(ctx context.Context, f DashboardFilter) (*DashboardPage, error)

	// ExportDashboard renders every row matching f, ignoring paging, to a
	// workbook. The caller must Close the returned file.
	ExportDashboard(ctx context.Context, f DashboardFilter) (*excelize.File, string, error)
}
