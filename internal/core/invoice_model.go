package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceSide describes where one kind of tax invoice is stored and which
// order type it settles. Sales invoices settle customer orders through
// customer_po_number; purchase invoices settle supplier orders through po_number.
type InvoiceSide struct {
	Name        string
	OrderType   OrderType
	HeaderTable string
	ItemTable   string
	PartyColumn string
	LinkColumn  string
}

var (
	SalesInvoices = InvoiceSide{
		Name:        "sales",
		OrderType:   OrderTypeCustomer,
		HeaderTable: "sales_tax_invoices",
		ItemTable:   "sales_tax_invoice_items",
		PartyColumn: "customer_id",
		LinkColumn:  "customer_po_number",
	}
	PurchaseInvoices = InvoiceSide{
		Name:        "purchase",
		OrderType:   OrderTypeSupplier,
		HeaderTable: "purchase_tax_invoices",
		ItemTable:   "purchase_tax_invoice_items",
		PartyColumn: "supplier_id",
		LinkColumn:  "po_number",
	}
)

// Invoice is a sales or purchase tax invoice header with its items.
// LinkedPONumber holds customer_po_number (sales) or po_number (purchase).
type Invoice struct {
	ID             int           `json:"id"`
	Side           string        `json:"side"`
	InvoiceNumber  string        `json:"invoice_number"`
	PartyID        *int          `json:"party_id,omitempty"`
	LinkedPONumber *string       `json:"linked_po_number,omitempty"`
	InvoiceDate    time.Time     `json:"invoice_date"`
	CreatedBy      *int          `json:"created_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Items          []InvoiceItem `json:"items"`
}

// InvoiceItem is one invoiced line.
type InvoiceItem struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	ProjectNo   string          `json:"project_no"`
	PartNo      string          `json:"part_no"`
	MaterialNo  string          `json:"material_no"`
	Description string          `json:"description"`
	UOM         string          `json:"uom"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Key returns the item's catalog key.
func (it InvoiceItem) Key() CatalogKey {
	return CatalogKey{
		ProjectNo:   it.ProjectNo,
		PartNo:      it.PartNo,
		MaterialNo:  it.MaterialNo,
		Description: it.Description,
		UOM:         it.UOM,
	}
}

// InvoiceItemInput holds the client-supplied fields of an invoice line.
type InvoiceItemInput struct {
	ProjectNo   string
	PartNo      string
	MaterialNo  string
	Description string
	UOM         string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// InvoiceInput holds the fields required to create an invoice.
type InvoiceInput struct {
	InvoiceNumber  string
	PartyID        *int
	LinkedPONumber string
	InvoiceDate    time.Time
	Items          []InvoiceItemInput
}

// InvoiceUpdate is a header edit. Nil fields are left unchanged; an empty
// LinkedPONumber unlinks the invoice.
type InvoiceUpdate struct {
	InvoiceNumber  *string
	PartyID        *int
	LinkedPONumber *string
	InvoiceDate    *time.Time
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	LinkedPONumber string
	Search         string
	Page           int
	Limit          int
}

// InvoiceList is one page of invoice headers.
type InvoiceList struct {
	Invoices   []Invoice `json:"invoices"`
	Pagination Page      `json:"pagination"`
}

// InvoiceService manages one side's tax invoices. Every write that touches
// invoice items recomputes the linked order's status in the same transaction,
// before the write is reported as successful.
type InvoiceService interface {
	// Side reports which invoice side this service manages.
	Side() InvoiceSide

	CreateInvoice(ctx context.Context, in InvoiceInput, userID int) (*Invoice, error)
	GetInvoice(ctx context.Context, id int) (*Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) (*InvoiceList, error)

	// UpdateInvoice edits the header. Relinking to another PO recomputes both
	// the old and the new order.
	UpdateInvoice(ctx context.Context, id int, upd InvoiceUpdate) (*Invoice, error)

	// DeleteInvoice removes the invoice and its items, then recomputes the
	// order it was linked to.
	DeleteInvoice(ctx context.Context, id int) error

	AddItem(ctx context.Context, invoiceID int, in InvoiceItemInput) (*InvoiceItem, error)
	UpdateItem(ctx context.Context, invoiceID, itemID int, in InvoiceItemInput) (*InvoiceItem, error)
	DeleteItem(ctx context.Context, invoiceID, itemID int) error
}
