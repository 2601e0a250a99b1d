package core_test

import (
	"testing"
	"time"

	"alltech-erp/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boltKey = core.CatalogKey{ProjectNo: "PRJ-1", PartNo: "B-10", MaterialNo: "STL", Description: "Hex bolt", UOM: "pcs"}

func orderItem(id int, k core.CatalogKey, qty, price string) core.PurchaseOrderItem {
	return core.PurchaseOrderItem{
		ID:          id,
		ProjectNo:   k.ProjectNo,
		PartNo:      k.PartNo,
		MaterialNo:  k.MaterialNo,
		Description: k.Description,
		UOM:         k.UOM,
		Quantity:    dec(qty),
		UnitPrice:   dec(price),
		TotalPrice:  core.LineTotal(dec(qty), dec(price)),
	}
}

func invoiceLine(invoiceID int, number string, day int, k core.CatalogKey, qty, price string) core.InvoiceLine {
	return core.InvoiceLine{
		InvoiceID:     invoiceID,
		InvoiceNumber: number,
		InvoiceDate:   time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		Item: core.InvoiceItem{
			InvoiceID:   invoiceID,
			ProjectNo:   k.ProjectNo,
			PartNo:      k.PartNo,
			MaterialNo:  k.MaterialNo,
			Description: k.Description,
			UOM:         k.UOM,
			Quantity:    dec(qty),
			UnitPrice:   dec(price),
			TotalAmount: core.LineTotal(dec(qty), dec(price)),
		},
	}
}

func po100() *core.PurchaseOrder {
	return &core.PurchaseOrder{
		ID:        1,
		PONumber:  "PO-100",
		OrderType: core.OrderTypeCustomer,
		Status:    core.StatusApproved,
		Items:     []core.PurchaseOrderItem{orderItem(1, boltKey, "10", "25.00")},
	}
}

func TestReconcile_PO100Lifecycle(t *testing.T) {
	order := po100()
	inv1 := invoiceLine(1, "SI-001", 1, boltKey, "4", "25.00")
	inv2 := invoiceLine(2, "SI-002", 2, boltKey, "6", "25.00")

	t.Run("first partial delivery", func(t *testing.T) {
		rec := core.Reconcile(order, []core.InvoiceLine{inv1})
		assert.Equal(t, core.StatusPartiallyDelivered, rec.Status)
		it := rec.Items[0]
		assert.True(t, it.DeliveredQuantity.Equal(dec("4")))
		assert.True(t, it.BalanceQuantityUndelivered.Equal(dec("6")))
		assert.True(t, it.DeliveredTotalPrice.Equal(dec("100")))
		require.NotNil(t, it.InvoiceNo)
		assert.Equal(t, "SI-001", *it.InvoiceNo)
	})

	t.Run("second delivery completes", func(t *testing.T) {
		rec := core.Reconcile(order, []core.InvoiceLine{inv1, inv2})
		assert.Equal(t, core.StatusDeliveredCompleted, rec.Status)
		it := rec.Items[0]
		assert.True(t, it.DeliveredQuantity.Equal(dec("10")))
		assert.True(t, it.BalanceQuantityUndelivered.IsZero())
		require.NotNil(t, rec.InvoiceNo)
		assert.Equal(t, "SI-001, SI-002", *rec.InvoiceNo)
	})

	t.Run("deleting the second invoice regresses", func(t *testing.T) {
		order.Status = core.StatusDeliveredCompleted
		rec := core.Reconcile(order, []core.InvoiceLine{inv1})
		assert.Equal(t, core.StatusPartiallyDelivered, rec.Status)
		assert.True(t, rec.Items[0].BalanceQuantityUndelivered.Equal(dec("6")))
	})

	t.Run("no invoices resets to approved", func(t *testing.T) {
		rec := core.Reconcile(order, nil)
		assert.Equal(t, core.StatusApproved, rec.Status)
		assert.True(t, rec.Items[0].DeliveredQuantity.IsZero())
		assert.Nil(t, rec.Items[0].InvoiceNo)
		assert.Nil(t, rec.InvoiceNo)
	})
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	order := po100()
	_ = core.Reconcile(order, []core.InvoiceLine{invoiceLine(1, "SI-001", 1, boltKey, "4", "25")})
	assert.True(t, order.Items[0].DeliveredQuantity.IsZero())
	assert.Equal(t, core.StatusApproved, order.Status)
}

func TestReconcile_Idempotent(t *testing.T) {
	order := po100()
	lines := []core.InvoiceLine{invoiceLine(1, "SI-001", 1, boltKey, "4", "25")}

	first := core.Reconcile(order, lines)
	order.Items = first.Items
	order.Status = first.Status
	second := core.Reconcile(order, lines)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Items, second.Items)
}

func TestReconcile_FillsDuplicateKeyItemsInOrder(t *testing.T) {
	order := &core.PurchaseOrder{
		PONumber: "PO-200",
		Items: []core.PurchaseOrderItem{
			orderItem(1, boltKey, "5", "10"),
			orderItem(2, boltKey, "5", "10"),
		},
	}

	rec := core.Reconcile(order, []core.InvoiceLine{invoiceLine(1, "SI-1", 1, boltKey, "7", "10")})
	assert.True(t, rec.Items[0].DeliveredQuantity.Equal(dec("5")))
	assert.True(t, rec.Items[1].DeliveredQuantity.Equal(dec("2")))
	assert.Equal(t, core.StatusPartiallyDelivered, rec.Status)
	assert.True(t, rec.DeliveredQty.Equal(dec("7")))
}

func TestReconcile_OverDeliveryLandsOnLastItem(t *testing.T) {
	order := &core.PurchaseOrder{
		PONumber: "PO-300",
		Items: []core.PurchaseOrderItem{
			orderItem(1, boltKey, "5", "10"),
			orderItem(2, boltKey, "5", "10"),
		},
	}

	rec := core.Reconcile(order, []core.InvoiceLine{invoiceLine(1, "SI-1", 1, boltKey, "12", "10")})
	assert.True(t, rec.Items[0].BalanceQuantityUndelivered.IsZero())
	assert.True(t, rec.Items[1].BalanceQuantityUndelivered.Equal(dec("-2")))
	assert.Equal(t, core.StatusDeliveredCompleted, rec.Status)
}

func TestReconcile_UnmatchedLinesDoNotCount(t *testing.T) {
	other := boltKey
	other.UOM = "box"

	rec := core.Reconcile(po100(), []core.InvoiceLine{invoiceLine(1, "SI-1", 1, other, "10", "25")})
	assert.Equal(t, core.StatusApproved, rec.Status)
	assert.Len(t, rec.Unmatched, 1)
	assert.True(t, rec.Items[0].DeliveredQuantity.IsZero())
	// The invoice is still linked to the order header.
	require.NotNil(t, rec.InvoiceNo)
	assert.Equal(t, "SI-1", *rec.InvoiceNo)
}

func TestReconcile_PricesAndPenalty(t *testing.T) {
	pct := dec("5")
	order := po100()
	order.PenaltyPercentage = &pct
	order.Items[0].PenaltyPercentage = &pct

	rec := core.Reconcile(order, []core.InvoiceLine{
		invoiceLine(1, "SI-1", 1, boltKey, "2", "24.50"),
		invoiceLine(2, "SI-2", 2, boltKey, "3", "26.00"),
	})

	it := rec.Items[0]
	assert.True(t, it.DeliveredUnitPrice.Equal(dec("24.50")), "first attributed price wins")
	assert.True(t, it.DeliveredTotalPrice.Equal(dec("127")), "2×24.50 + 3×26.00")
	require.NotNil(t, it.PenaltyAmount)
	assert.True(t, it.PenaltyAmount.Equal(dec("6.35")))
	require.NotNil(t, rec.PenaltyAmount)
	assert.True(t, rec.PenaltyAmount.Equal(dec("6.35")))
}

func TestReconcile_KeepsManualOrderPenaltyWithoutPercentage(t *testing.T) {
	amt := decimal.NewFromInt(150)
	order := po100()
	order.PenaltyAmount = &amt

	rec := core.Reconcile(order, nil)
	require.NotNil(t, rec.PenaltyAmount)
	assert.True(t, rec.PenaltyAmount.Equal(amt))
}
