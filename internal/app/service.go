package app

import (
	"context"

	"alltech-erp/internal/core"

	"github.com/xuri/excelize/v2"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
//
// side arguments select the invoice book: "sales" or "purchase".
type ApplicationService interface {
	// GetDashboard returns one page of the combined supplier/customer dashboard.
	GetDashboard(ctx context.Context, req DashboardRequest) (*core.DashboardPage, error)

	// ExportDashboard renders all dashboard rows matching req to a workbook.
	// The caller must Close the file.
	ExportDashboard(ctx context.Context, req DashboardRequest) (*excelize.File, string, error)

	// ListParties returns customers and/or suppliers. partyType may be empty.
	ListParties(ctx context.Context, partyType string) (*PartiesResult, error)

	// CreateParty creates a customer or supplier.
	CreateParty(ctx context.Context, req CreatePartyRequest) (*core.Party, error)

	ListPurchaseOrders(ctx context.Context, req ListPurchaseOrdersRequest) (*core.PurchaseOrderList, error)
	GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error)
	GetPurchaseOrderByNumber(ctx context.Context, poNumber string) (*core.PurchaseOrder, error)

	// CreatePurchaseOrder creates an approved order.
	CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*core.PurchaseOrder, error)

	// UpdatePurchaseOrder applies an administrative edit.
	UpdatePurchaseOrder(ctx context.Context, id int, req UpdatePurchaseOrderRequest) (*core.PurchaseOrder, error)

	DeletePurchaseOrder(ctx context.Context, id int) error

	// RecomputeOrderStatus re-derives one order's status from its linked invoices.
	RecomputeOrderStatus(ctx context.Context, id int) (*RecomputeResult, error)

	// RecomputeAllOrders re-derives every order's status.
	RecomputeAllOrders(ctx context.Context) (*RecomputeAllResult, error)

	ListInvoices(ctx context.Context, side string, req ListInvoicesRequest) (*core.InvoiceList, error)
	GetInvoice(ctx context.Context, side string, id int) (*core.Invoice, error)

	// CreateInvoice stores an invoice and recomputes the order it links to.
	CreateInvoice(ctx context.Context, side string, req CreateInvoiceRequest) (*core.Invoice, error)

	// UpdateInvoice edits the header, recomputing the old and new linked orders.
	UpdateInvoice(ctx context.Context, side string, id int, req UpdateInvoiceRequest) (*core.Invoice, error)

	DeleteInvoice(ctx context.Context, side string, id int) error

	AddInvoiceItem(ctx context.Context, side string, invoiceID int, req InvoiceItemRequest) (*core.InvoiceItem, error)
	UpdateInvoiceItem(ctx context.Context, side string, invoiceID, itemID int, req InvoiceItemRequest) (*core.InvoiceItem, error)
	DeleteInvoiceItem(ctx context.Context, side string, invoiceID, itemID int) error
}
