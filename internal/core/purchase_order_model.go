package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is an order header. OrderType decides whether it feeds the
// customer (sales) or supplier (purchase) half of the dashboard.
type PurchaseOrder struct {
	ID                 int                 `json:"id"`
	PONumber           string              `json:"po_number"`
	OrderType          OrderType           `json:"order_type"`
	CustomerSupplierID int                 `json:"customer_supplier_id"`
	PartyName          string              `json:"customer_supplier_name"`
	Status             OrderStatus         `json:"status"`
	PenaltyPercentage  *decimal.Decimal    `json:"penalty_percentage,omitempty"`
	PenaltyAmount      *decimal.Decimal    `json:"penalty_amount,omitempty"`
	InvoiceNo          *string             `json:"invoice_no,omitempty"`
	CreatedBy          *int                `json:"created_by,omitempty"`
	ApprovedBy         *int                `json:"approved_by,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	ApprovedAt         time.Time           `json:"approved_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Items              []PurchaseOrderItem `json:"items"`
}

// PurchaseOrderItem is one line of a purchase order. Delivered fields are
// derived from linked invoices by the status propagation path.
type PurchaseOrderItem struct {
	ID                         int              `json:"id"`
	PurchaseOrderID            int              `json:"purchase_order_id"`
	ProjectNo                  string           `json:"project_no"`
	PartNo                     string           `json:"part_no"`
	MaterialNo                 string           `json:"material_no"`
	Description                string           `json:"description"`
	UOM                        string           `json:"uom"`
	Quantity                   decimal.Decimal  `json:"quantity"`
	UnitPrice                  decimal.Decimal  `json:"unit_price"`
	TotalPrice                 decimal.Decimal  `json:"total_price"`
	LeadTime                   string           `json:"lead_time"`
	DueDate                    *time.Time       `json:"due_date,omitempty"`
	DeliveredQuantity          decimal.Decimal  `json:"delivered_quantity"`
	DeliveredUnitPrice         decimal.Decimal  `json:"delivered_unit_price"`
	DeliveredTotalPrice        decimal.Decimal  `json:"delivered_total_price"`
	PenaltyPercentage          *decimal.Decimal `json:"penalty_percentage,omitempty"`
	PenaltyAmount              *decimal.Decimal `json:"penalty_amount,omitempty"`
	InvoiceNo                  *string          `json:"invoice_no,omitempty"`
	BalanceQuantityUndelivered decimal.Decimal  `json:"balance_quantity_undelivered"`
	CreatedAt                  time.Time        `json:"created_at"`
}

// Key returns the item's catalog key.
func (it PurchaseOrderItem) Key() CatalogKey {
	return CatalogKey{
		ProjectNo:   it.ProjectNo,
		PartNo:      it.PartNo,
		MaterialNo:  it.MaterialNo,
		Description: it.Description,
		UOM:         it.UOM,
	}
}

// PurchaseOrderItemInput holds the client-supplied fields of an order line.
// Totals and balances are always computed server-side.
type PurchaseOrderItemInput struct {
	ProjectNo         string
	PartNo            string
	MaterialNo        string
	Description       string
	UOM               string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	LeadTime          string
	DueDate           *time.Time
	PenaltyPercentage *decimal.Decimal
}

// PurchaseOrderInput holds the fields required to create a purchase order.
type PurchaseOrderInput struct {
	PONumber           string
	OrderType          OrderType
	CustomerSupplierID int
	PenaltyPercentage  *decimal.Decimal
	Items              []PurchaseOrderItemInput
}

// PurchaseOrderUpdate is an administrative edit. Nil fields are left as is.
// A non-nil Items replaces the whole item set. A non-nil Status overrides the
// derived status until the next invoice change re-derives it.
type PurchaseOrderUpdate struct {
	PenaltyPercentage *decimal.Decimal
	ClearPenalty      bool
	Status            *OrderStatus
	Items             []PurchaseOrderItemInput
}

// PurchaseOrderFilter narrows ListPurchaseOrders. Zero values mean "any".
type PurchaseOrderFilter struct {
	OrderType OrderType
	Status    OrderStatus
	Search    string
	Page      int
	Limit     int
}

// PurchaseOrderList is one page of purchase orders.
type PurchaseOrderList struct {
	Orders     []PurchaseOrder `json:"orders"`
	Pagination Page            `json:"pagination"`
}

// PurchaseOrderService covers the order lifecycle. Status changes driven by
// invoices go through InvoiceService; RecomputeOrderStatus is the direct
// administrative entry point.
type PurchaseOrderService interface {
	// CreatePurchaseOrder creates an approved order with computed line totals.
	CreatePurchaseOrder(ctx context.Context, in PurchaseOrderInput, userID int) (*PurchaseOrder, error)

	// GetPurchaseOrder returns an order with its items.
	GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error)

	// GetPurchaseOrderByNumber returns the order with the given po_number.
	GetPurchaseOrderByNumber(ctx context.Context, poNumber string) (*PurchaseOrder, error)

	// ListPurchaseOrders returns a page of orders, newest first, without items.
	ListPurchaseOrders(ctx context.Context, f PurchaseOrderFilter) (*PurchaseOrderList, error)

	// UpdatePurchaseOrder applies an administrative edit and recomputes
	// delivery state. A status override is written after the recompute.
	UpdatePurchaseOrder(ctx context.Context, id int, upd PurchaseOrderUpdate) (*PurchaseOrder, error)

	// DeletePurchaseOrder removes an order and its items.
	DeletePurchaseOrder(ctx context.Context, id int) error

	// RecomputeOrderStatus re-derives delivered quantities and status from the
	// order's linked invoices. Calling it twice with no data change is a no-op.
	RecomputeOrderStatus(ctx context.Context, id int) (OrderStatus, error)

	// RecomputeAllOrders runs RecomputeOrderStatus for every order, one
	// transaction each, and reports how many changed status.
	RecomputeAllOrders(ctx context.Context) (changed int, err error)

	// CreateParty creates a customer or supplier.
	CreateParty(ctx context.Context, in PartyInput) (*Party, error)

	// ListParties lists parties, optionally restricted to one type.
	ListParties(ctx context.Context, partyType OrderType) ([]Party, error)
}
