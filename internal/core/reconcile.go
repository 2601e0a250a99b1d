package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InvoiceLine is an invoice item as seen by reconciliation: the item itself
// plus the header fields needed to attribute it.
type InvoiceLine struct {
	InvoiceID     int
	InvoiceNumber string
	InvoiceDate   time.Time
	Item          InvoiceItem
}

// Reconciliation is the freshly derived delivery state of one order.
type Reconciliation struct {
	Items         []PurchaseOrderItem
	Status        OrderStatus
	InvoiceNo     *string
	PenaltyAmount *decimal.Decimal
	OrderedQty    decimal.Decimal
	DeliveredQty  decimal.Decimal
	// Unmatched lists invoice lines whose catalog key matches no order item.
	// They do not count toward delivery.
	Unmatched []InvoiceLine
}

type allocation struct {
	qty        decimal.Decimal
	value      decimal.Decimal
	firstPrice *decimal.Decimal
	invoices   []string
}

// Reconcile derives delivered quantities, prices and the order status from
// scratch. Each invoice line fills order items with the same catalog key in
// item order, up to each item's ordered quantity; whatever is left lands on
// the last matching item so over-delivery stays visible as a negative balance.
//
// lines must be in attribution order (invoice date, invoice id, item id).
// order.Items must be in id order. Neither is modified.
func Reconcile(order *PurchaseOrder, lines []InvoiceLine) Reconciliation {
	items := make([]PurchaseOrderItem, len(order.Items))
	copy(items, order.Items)

	byKey := make(map[CatalogKey][]int, len(items))
	for i, it := range items {
		k := it.Key()
		byKey[k] = append(byKey[k], i)
	}

	allocs := make([]allocation, len(items))
	var res Reconciliation
	var linkedInvoices []string

	for _, ln := range lines {
		linkedInvoices = appendDistinct(linkedInvoices, ln.InvoiceNumber)

		idxs, ok := byKey[ln.Item.Key()]
		if !ok {
			res.Unmatched = append(res.Unmatched, ln)
			continue
		}

		remaining := ln.Item.Quantity
		for n, i := range idxs {
			var take decimal.Decimal
			if n == len(idxs)-1 {
				take = remaining
			} else {
				capacity := items[i].Quantity.Sub(allocs[i].qty)
				if capacity.IsNegative() {
					capacity = decimal.Zero
				}
				take = decimal.Min(capacity, remaining)
			}
			if take.IsZero() {
				continue
			}

			a := &allocs[i]
			a.qty = a.qty.Add(take)
			a.value = a.value.Add(take.Mul(ln.Item.UnitPrice))
			if a.firstPrice == nil {
				p := ln.Item.UnitPrice
				a.firstPrice = &p
			}
			a.invoices = appendDistinct(a.invoices, ln.InvoiceNumber)

			remaining = remaining.Sub(take)
			if remaining.IsZero() {
				break
			}
		}
	}

	var deliveredValue decimal.Decimal
	for i := range items {
		it := &items[i]
		a := allocs[i]

		it.DeliveredQuantity = a.qty
		it.DeliveredTotalPrice = round2(a.value)
		it.DeliveredUnitPrice = decimal.Zero
		if a.firstPrice != nil {
			it.DeliveredUnitPrice = *a.firstPrice
		}
		it.InvoiceNo = joinOrNil(a.invoices)
		if it.PenaltyPercentage != nil {
			amt := round2(it.DeliveredTotalPrice.Mul(*it.PenaltyPercentage).Div(hundred))
			it.PenaltyAmount = &amt
		}
		it.TotalPrice = LineTotal(it.Quantity, it.UnitPrice)
		it.BalanceQuantityUndelivered = it.Quantity.Sub(it.DeliveredQuantity)

		res.OrderedQty = res.OrderedQty.Add(it.Quantity)
		res.DeliveredQty = res.DeliveredQty.Add(it.DeliveredQuantity)
		deliveredValue = deliveredValue.Add(it.DeliveredTotalPrice)
	}

	res.Items = items
	res.Status = DeriveStatus(res.OrderedQty, res.DeliveredQty)
	res.InvoiceNo = joinOrNil(linkedInvoices)
	if order.PenaltyPercentage != nil {
		amt := round2(deliveredValue.Mul(*order.PenaltyPercentage).Div(hundred))
		res.PenaltyAmount = &amt
	} else {
		res.PenaltyAmount = order.PenaltyAmount
	}
	return res
}

// itemChanged reports whether reconciliation altered any stored field.
func itemChanged(before, after PurchaseOrderItem) bool {
	return !before.DeliveredQuantity.Equal(after.DeliveredQuantity) ||
		!before.DeliveredUnitPrice.Equal(after.DeliveredUnitPrice) ||
		!before.DeliveredTotalPrice.Equal(after.DeliveredTotalPrice) ||
		!before.TotalPrice.Equal(after.TotalPrice) ||
		!before.BalanceQuantityUndelivered.Equal(after.BalanceQuantityUndelivered) ||
		!decimalPtrEqual(before.PenaltyAmount, after.PenaltyAmount) ||
		derefStr(before.InvoiceNo) != derefStr(after.InvoiceNo)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func appendDistinct(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func joinOrNil(list []string) *string {
	if len(list) == 0 {
		return nil
	}
	s := strings.Join(list, ", ")
	return &s
}
