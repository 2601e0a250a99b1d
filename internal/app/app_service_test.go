package app

import (
	"context"
	"errors"
	"testing"

	"alltech-erp/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrders records the inputs it receives. Unused methods panic via the nil
// embedded interface.
type fakeOrders struct {
	core.PurchaseOrderService
	created core.PurchaseOrderInput
	userID  int
	updated core.PurchaseOrderUpdate
}

func (f *fakeOrders) CreatePurchaseOrder(_ context.Context, in core.PurchaseOrderInput, userID int) (*core.PurchaseOrder, error) {
	f.created, f.userID = in, userID
	return &core.PurchaseOrder{ID: 1, PONumber: in.PONumber}, nil
}

func (f *fakeOrders) UpdatePurchaseOrder(_ context.Context, id int, upd core.PurchaseOrderUpdate) (*core.PurchaseOrder, error) {
	f.updated = upd
	return &core.PurchaseOrder{ID: id}, nil
}

type fakeInvoices struct {
	core.InvoiceService
	side    core.InvoiceSide
	created core.InvoiceInput
}

func (f *fakeInvoices) Side() core.InvoiceSide { return f.side }

func (f *fakeInvoices) CreateInvoice(_ context.Context, in core.InvoiceInput, _ int) (*core.Invoice, error) {
	f.created = in
	return &core.Invoice{ID: 1, Side: f.side.Name}, nil
}

func newTestApp() (*appService, *fakeOrders, *fakeInvoices, *fakeInvoices) {
	orders := &fakeOrders{}
	sales := &fakeInvoices{side: core.SalesInvoices}
	purchases := &fakeInvoices{side: core.PurchaseInvoices}
	svc := NewAppService(orders, sales, purchases, nil, nil).(*appService)
	return svc, orders, sales, purchases
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{" 3 ", "3"},
		{"", "0"},
		{"abc", "0"},
		{"1,000", "0"},
		{"-4", "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, parseAmount(tt.in).Equal(decimal.RequireFromString(tt.want)))
		})
	}
	assert.Nil(t, parseOptionalAmount("  "))
}

func TestCreatePurchaseOrder_ParsesNumbersAndDates(t *testing.T) {
	svc, orders, _, _ := newTestApp()

	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		UserID:    7,
		PONumber:  "PO-100",
		OrderType: "customer",
		Items: []PurchaseOrderItemRequest{
			{Quantity: "10", UnitPrice: "not-a-number", DueDate: "2026-05-01", PenaltyPercentage: "2.5"},
		},
	})
	require.NoError(t, err)

	require.Len(t, orders.created.Items, 1)
	it := orders.created.Items[0]
	assert.Equal(t, 7, orders.userID)
	assert.Equal(t, core.OrderTypeCustomer, orders.created.OrderType)
	assert.True(t, it.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, it.UnitPrice.IsZero(), "malformed numbers become zero")
	require.NotNil(t, it.DueDate)
	assert.Equal(t, "2026-05-01", it.DueDate.Format("2006-01-02"))
	require.NotNil(t, it.PenaltyPercentage)
	assert.Nil(t, orders.created.PenaltyPercentage)
}

func TestCreatePurchaseOrder_RejectsBadDueDate(t *testing.T) {
	svc, _, _, _ := newTestApp()
	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderRequest{
		Items: []PurchaseOrderItemRequest{{DueDate: "01/05/2026"}},
	})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestUpdatePurchaseOrder_EmptyPenaltyClears(t *testing.T) {
	svc, orders, _, _ := newTestApp()
	empty, status := "", "delivered_completed"

	_, err := svc.UpdatePurchaseOrder(context.Background(), 3, UpdatePurchaseOrderRequest{
		PenaltyPercentage: &empty,
		Status:            &status,
	})
	require.NoError(t, err)
	assert.True(t, orders.updated.ClearPenalty)
	assert.Nil(t, orders.updated.PenaltyPercentage)
	require.NotNil(t, orders.updated.Status)
	assert.Equal(t, core.StatusDeliveredCompleted, *orders.updated.Status)
	assert.Nil(t, orders.updated.Items, "items untouched when not supplied")
}

func TestCreateInvoice_RoutesBySide(t *testing.T) {
	svc, _, sales, purchases := newTestApp()
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, "purchase", CreateInvoiceRequest{
		InvoiceNumber: "PI-1", LinkedPONumber: "SPO-1", InvoiceDate: "2026-03-01",
		Items: []InvoiceItemRequest{{Quantity: "4", UnitPrice: "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "purchase", inv.Side)
	assert.Equal(t, "SPO-1", purchases.created.LinkedPONumber)
	assert.Empty(t, sales.created.InvoiceNumber)
	require.Len(t, purchases.created.Items, 1)
	assert.True(t, purchases.created.Items[0].Quantity.Equal(decimal.NewFromInt(4)))

	_, err = svc.CreateInvoice(ctx, "refunds", CreateInvoiceRequest{InvoiceNumber: "X"})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestListParties_RejectsUnknownType(t *testing.T) {
	svc, _, _, _ := newTestApp()
	_, err := svc.ListParties(context.Background(), "vendor")
	assert.True(t, errors.Is(err, core.ErrValidation))
}
