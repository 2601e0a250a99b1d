package app

// Numeric fields are carried as strings exactly as the client sent them and
// parsed by parseAmount; a malformed value is treated as zero.

// DashboardRequest is the input for GetDashboard and ExportDashboard.
type DashboardRequest struct {
	Search   string
	AsOfDate string // YYYY-MM-DD, empty means today
	Page     int
	Limit    int
}

// CreatePartyRequest is the input for creating a customer or supplier.
type CreatePartyRequest struct {
	Name  string
	Type  string // "customer" or "supplier"
	Email string
	Phone string
}

// ListPurchaseOrdersRequest narrows ListPurchaseOrders.
type ListPurchaseOrdersRequest struct {
	OrderType string
	Status    string
	Search    string
	Page      int
	Limit     int
}

// PurchaseOrderItemRequest is a single line within a purchase order request.
type PurchaseOrderItemRequest struct {
	ProjectNo         string
	PartNo            string
	MaterialNo        string
	Description       string
	UOM               string
	Quantity          string
	UnitPrice         string
	LeadTime          string
	DueDate           string // YYYY-MM-DD, optional
	PenaltyPercentage string // optional
}

// CreatePurchaseOrderRequest is the input for creating a purchase order.
type CreatePurchaseOrderRequest struct {
	UserID             int
	PONumber           string
	OrderType          string
	CustomerSupplierID int
	PenaltyPercentage  string // optional
	Items              []PurchaseOrderItemRequest
}

// UpdatePurchaseOrderRequest is an administrative edit. Nil fields are left
// unchanged; a non-nil Items replaces the item set.
type UpdatePurchaseOrderRequest struct {
	PenaltyPercentage *string // "" clears the penalty
	Status            *string
	Items             []PurchaseOrderItemRequest
}

// ListInvoicesRequest narrows ListInvoices.
type ListInvoicesRequest struct {
	LinkedPONumber string
	Search         string
	Page           int
	Limit          int
}

// InvoiceItemRequest is a single invoice line.
type InvoiceItemRequest struct {
	ProjectNo   string
	PartNo      string
	MaterialNo  string
	Description string
	UOM         string
	Quantity    string
	UnitPrice   string
}

// CreateInvoiceRequest is the input for creating a sales or purchase invoice.
type CreateInvoiceRequest struct {
	UserID         int
	InvoiceNumber  string
	PartyID        *int
	LinkedPONumber string
	InvoiceDate    string // YYYY-MM-DD, empty means today
	Items          []InvoiceItemRequest
}

// UpdateInvoiceRequest edits an invoice header. Nil fields are left unchanged.
type UpdateInvoiceRequest struct {
	InvoiceNumber  *string
	PartyID        *int
	LinkedPONumber *string // "" unlinks
	InvoiceDate    *string
}
