package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alltech-erp/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type appService struct {
	orders    core.PurchaseOrderService
	invoices  map[string]core.InvoiceService
	dashboard core.DashboardService
	log       *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	orders core.PurchaseOrderService,
	sales core.InvoiceService,
	purchases core.InvoiceService,
	dashboard core.DashboardService,
	log *zap.Logger,
) ApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &appService{
		orders: orders,
		invoices: map[string]core.InvoiceService{
			sales.Side().Name:     sales,
			purchases.Side().Name: purchases,
		},
		dashboard: dashboard,
		log:       log,
	}
}

// parseAmount parses a client-supplied number. Blank or malformed input is zero.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseOptionalAmount returns nil for blank input.
func parseOptionalAmount(s string) *decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d := parseAmount(s)
	return &d
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%s %q must be YYYY-MM-DD: %w", field, s, core.ErrValidation)
	}
	return &t, nil
}

func (s *appService) invoiceBook(side string) (core.InvoiceService, error) {
	svc, ok := s.invoices[side]
	if !ok {
		return nil, fmt.Errorf("unknown invoice side %q: %w", side, core.ErrValidation)
	}
	return svc, nil
}

func (s *appService) GetDashboard(ctx context.Context, req DashboardRequest) (*core.DashboardPage, error) {
	return s.dashboard.GetDashboard(ctx, core.DashboardFilter(req))
}

func (s *appService) ExportDashboard(ctx context.Context, req DashboardRequest) (*excelize.File, string, error) {
	return s.dashboard.ExportDashboard(ctx, core.DashboardFilter(req))
}

func (s *appService) ListParties(ctx context.Context, partyType string) (*PartiesResult, error) {
	t := core.OrderType(strings.TrimSpace(partyType))
	if t != "" && !t.Valid() {
		return nil, fmt.Errorf("type %q must be customer or supplier: %w", partyType, core.ErrValidation)
	}
	parties, err := s.orders.ListParties(ctx, t)
	if err != nil {
		return nil, err
	}
	if parties == nil {
		parties = []core.Party{}
	}
	return &PartiesResult{Parties: parties}, nil
}

func (s *appService) CreateParty(ctx context.Context, req CreatePartyRequest) (*core.Party, error) {
	return s.orders.CreateParty(ctx, core.PartyInput{
		Name:  req.Name,
		Type:  core.OrderType(strings.TrimSpace(req.Type)),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	})
}

func (s *appService) ListPurchaseOrders(ctx context.Context, req ListPurchaseOrdersRequest) (*core.PurchaseOrderList, error) {
	return s.orders.ListPurchaseOrders(ctx, core.PurchaseOrderFilter{
		OrderType: core.OrderType(req.OrderType),
		Status:    core.OrderStatus(req.Status),
		Search:    req.Search,
		Page:      req.Page,
		Limit:     req.Limit,
	})
}

func (s *appService) GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	return s.orders.GetPurchaseOrder(ctx, id)
}

func (s *appService) GetPurchaseOrderByNumber(ctx context.Context, poNumber string) (*core.PurchaseOrder, error) {
	if strings.TrimSpace(poNumber) == "" {
		return nil, fmt.Errorf("po_number is required: %w", core.ErrValidation)
	}
	return s.orders.GetPurchaseOrderByNumber(ctx, poNumber)
}

func toOrderItems(reqs []PurchaseOrderItemRequest) ([]core.PurchaseOrderItemInput, error) {
	items := make([]core.PurchaseOrderItemInput, 0, len(reqs))
	for i, r := range reqs {
		due, err := parseDate(fmt.Sprintf("item %d due_date", i+1), r.DueDate)
		if err != nil {
			return nil, err
		}
		items = append(items, core.PurchaseOrderItemInput{
			ProjectNo:         r.ProjectNo,
			PartNo:            r.PartNo,
			MaterialNo:        r.MaterialNo,
			Description:       r.Description,
			UOM:               r.UOM,
			Quantity:          parseAmount(r.Quantity),
			UnitPrice:         parseAmount(r.UnitPrice),
			LeadTime:          r.LeadTime,
			DueDate:           due,
			PenaltyPercentage: parseOptionalAmount(r.PenaltyPercentage),
		})
	}
	return items, nil
}

func (s *appService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*core.PurchaseOrder, error) {
	items, err := toOrderItems(req.Items)
	if err != nil {
		return nil, err
	}
	return s.orders.CreatePurchaseOrder(ctx, core.PurchaseOrderInput{
		PONumber:           req.PONumber,
		OrderType:          core.OrderType(strings.TrimSpace(req.OrderType)),
		CustomerSupplierID: req.CustomerSupplierID,
		PenaltyPercentage:  parseOptionalAmount(req.PenaltyPercentage),
		Items:              items,
	}, req.UserID)
}

func (s *appService) UpdatePurchaseOrder(ctx context.Context, id int, req UpdatePurchaseOrderRequest) (*core.PurchaseOrder, error) {
	var upd core.PurchaseOrderUpdate
	if req.PenaltyPercentage != nil {
		if pct := parseOptionalAmount(*req.PenaltyPercentage); pct != nil {
			upd.PenaltyPercentage = pct
		} else {
			upd.ClearPenalty = true
		}
	}
	if req.Status != nil {
		st := core.OrderStatus(strings.TrimSpace(*req.Status))
		upd.Status = &st
	}
	if req.Items != nil {
		items, err := toOrderItems(req.Items)
		if err != nil {
			return nil, err
		}
		upd.Items = items
	}
	return s.orders.UpdatePurchaseOrder(ctx, id, upd)
}

func (s *appService) DeletePurchaseOrder(ctx context.Context, id int) error {
	return s.orders.DeletePurchaseOrder(ctx, id)
}

func (s *appService) RecomputeOrderStatus(ctx context.Context, id int) (*RecomputeResult, error) {
	status, err := s.orders.RecomputeOrderStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RecomputeResult{OrderID: id, Status: status}, nil
}

func (s *appService) RecomputeAllOrders(ctx context.Context) (*RecomputeAllResult, error) {
	changed, err := s.orders.RecomputeAllOrders(ctx)
	if err != nil {
		// A partial sweep still reports how many orders it fixed.
		return &RecomputeAllResult{Changed: changed}, err
	}
	s.log.Info("recomputed all purchase orders", zap.Int("changed", changed))
	return &RecomputeAllResult{Changed: changed}, nil
}

func (s *appService) ListInvoices(ctx context.Context, side string, req ListInvoicesRequest) (*core.InvoiceList, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	return svc.ListInvoices(ctx, core.InvoiceFilter(req))
}

func (s *appService) GetInvoice(ctx context.Context, side string, id int) (*core.Invoice, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	return svc.GetInvoice(ctx, id)
}

func toInvoiceItem(r InvoiceItemRequest) core.InvoiceItemInput {
	return core.InvoiceItemInput{
		ProjectNo:   r.ProjectNo,
		PartNo:      r.PartNo,
		MaterialNo:  r.MaterialNo,
		Description: r.Description,
		UOM:         r.UOM,
		Quantity:    parseAmount(r.Quantity),
		UnitPrice:   parseAmount(r.UnitPrice),
	}
}

func (s *appService) CreateInvoice(ctx context.Context, side string, req CreateInvoiceRequest) (*core.Invoice, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("invoice_date", req.InvoiceDate)
	if err != nil {
		return nil, err
	}
	in := core.InvoiceInput{
		InvoiceNumber:  req.InvoiceNumber,
		PartyID:        req.PartyID,
		LinkedPONumber: req.LinkedPONumber,
	}
	if date != nil {
		in.InvoiceDate = *date
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, toInvoiceItem(it))
	}
	return svc.CreateInvoice(ctx, in, req.UserID)
}

func (s *appService) UpdateInvoice(ctx context.Context, side string, id int, req UpdateInvoiceRequest) (*core.Invoice, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	upd := core.InvoiceUpdate{
		InvoiceNumber:  req.InvoiceNumber,
		PartyID:        req.PartyID,
		LinkedPONumber: req.LinkedPONumber,
	}
	if req.InvoiceDate != nil {
		date, err := parseDate("invoice_date", *req.InvoiceDate)
		if err != nil {
			return nil, err
		}
		if date == nil {
			return nil, fmt.Errorf("invoice_date must not be empty: %w", core.ErrValidation)
		}
		upd.InvoiceDate = date
	}
	return svc.UpdateInvoice(ctx, id, upd)
}

func (s *appService) DeleteInvoice(ctx context.Context, side string, id int) error {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return err
	}
	return svc.DeleteInvoice(ctx, id)
}

func (s *appService) AddInvoiceItem(ctx context.Context, side string, invoiceID int, req InvoiceItemRequest) (*core.InvoiceItem, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	return svc.AddItem(ctx, invoiceID, toInvoiceItem(req))
}

func (s *appService) UpdateInvoiceItem(ctx context.Context, side string, invoiceID, itemID int, req InvoiceItemRequest) (*core.InvoiceItem, error) {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return nil, err
	}
	return svc.UpdateItem(ctx, invoiceID, itemID, toInvoiceItem(req))
}

func (s *appService) DeleteInvoiceItem(ctx context.Context, side string, invoiceID, itemID int) error {
	svc, err := s.invoiceBook(side)
	if err != nil {
		return err
	}
	return svc.DeleteItem(ctx, invoiceID, itemID)
}
