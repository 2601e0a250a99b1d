package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dueDateCompleted = "Completed"
	dueDateNone      = "-"
)

// buildRowFn is replaced in tests to exercise per-row error isolation.
var buildRowFn = buildRow

// AggregateDashboard folds order items into one CombinedRow per catalog key,
// sorted by key. Items whose parent order is missing are skipped. asOf is the
// reference date for overdue flags.
func AggregateDashboard(items []DashboardSourceItem, asOf time.Time) []CombinedRow {
	groups := make(map[CatalogKey][]DashboardSourceItem)
	for _, src := range items {
		if src.Order == nil {
			continue
		}
		k := src.Item.Key()
		groups[k] = append(groups[k], src)
	}

	keys := make([]CatalogKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := make([]CombinedRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, safeBuildRow(k, groups[k], asOf))
	}
	return rows
}

func safeBuildRow(key CatalogKey, items []DashboardSourceItem, asOf time.Time) (row CombinedRow) {
	defer func() {
		if r := recover(); r != nil {
			row = CombinedRow{CatalogKey: key, Error: fmt.Sprintf("build row: %v", r)}
		}
	}()
	return buildRowFn(key, items, asOf)
}

func buildRow(key CatalogKey, items []DashboardSourceItem, asOf time.Time) CombinedRow {
	var supplier, customer []DashboardSourceItem
	for _, src := range items {
		switch src.Order.OrderType {
		case OrderTypeSupplier:
			supplier = append(supplier, src)
		case OrderTypeCustomer:
			customer = append(customer, src)
		}
	}

	row := CombinedRow{CatalogKey: key}
	row.SupplierApproved, row.SupplierDelivered = buildSide(supplier, asOf)
	row.CustomerApproved, row.CustomerDelivered = buildSide(customer, asOf)
	return row
}

// sortFirstWins orders items by parent creation time, then order id, then item id.
func sortFirstWins(items []DashboardSourceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Order.CreatedAt.Equal(b.Order.CreatedAt) {
			return a.Order.CreatedAt.Before(b.Order.CreatedAt)
		}
		if a.Order.ID != b.Order.ID {
			return a.Order.ID < b.Order.ID
		}
		return a.Item.ID < b.Item.ID
	})
}

func buildSide(items []DashboardSourceItem, asOf time.Time) (*ApprovedBlock, *DeliveredBlock) {
	var approved, delivered []DashboardSourceItem
	for _, src := range items {
		if src.Order.Status.IsApproved() {
			approved = append(approved, src)
		}
		if src.Order.Status.IsDelivered() {
			delivered = append(delivered, src)
		}
	}
	if len(approved) == 0 {
		return nil, nil
	}
	sortFirstWins(approved)
	sortFirstWins(delivered)

	ab := approvedBlock(approved)
	var db *DeliveredBlock
	deliveredQty := decimal.Zero
	if len(delivered) > 0 {
		db = deliveredBlock(delivered)
		deliveredQty = db.DeliveredQuantity
	}

	ab.BalanceQuantityUndelivered = ab.POQuantity.Sub(deliveredQty)
	settled := IsSettled(ab.BalanceQuantityUndelivered)
	ab.Inconsistent = ab.BalanceQuantityUndelivered.LessThan(tolerance.Neg()) ||
		(ab.Status == StatusDeliveredCompleted && !settled) ||
		(ab.Status != StatusDeliveredCompleted && settled && deliveredQty.IsPositive())

	switch {
	case ab.Status == StatusDeliveredCompleted && settled:
		ab.DueDateDisplay = dueDateCompleted
	case ab.DueDate != nil:
		ab.DueDateDisplay = ab.DueDate.Format(time.DateOnly)
		ab.Overdue = dateOnly(*ab.DueDate).Before(dateOnly(asOf))
	default:
		ab.DueDateDisplay = dueDateNone
	}
	return ab, db
}

func approvedBlock(items []DashboardSourceItem) *ApprovedBlock {
	first := items[0]
	b := &ApprovedBlock{
		POUnitPrice:          first.Item.UnitPrice,
		LeadTime:             first.Item.LeadTime,
		DueDate:              first.Item.DueDate,
		CustomerSupplierName: first.Order.PartyName,
		Status:               first.Order.Status,
	}
	var poNumbers []string
	for _, src := range items {
		b.POQuantity = b.POQuantity.Add(src.Item.Quantity)
		poNumbers = appendDistinct(poNumbers, src.Order.PONumber)
		if src.Order.Status.Rank() < b.Status.Rank() {
			b.Status = src.Order.Status
		}
	}
	b.POTotalPrice = b.POQuantity.Mul(b.POUnitPrice)
	b.PONumber = strings.Join(poNumbers, ", ")
	return b
}

func deliveredBlock(items []DashboardSourceItem) *DeliveredBlock {
	first := items[0]
	b := &DeliveredBlock{
		DeliveredUnitPrice: first.Item.DeliveredUnitPrice,
		PenaltyPercentage:  first.Order.PenaltyPercentage,
		PenaltyAmount:      first.Order.PenaltyAmount,
		InvoiceNo:          derefStr(first.Order.InvoiceNo),
	}
	if b.PenaltyPercentage == nil {
		b.PenaltyPercentage = first.Item.PenaltyPercentage
	}
	if b.PenaltyAmount == nil {
		b.PenaltyAmount = first.Item.PenaltyAmount
	}
	if b.InvoiceNo == "" {
		b.InvoiceNo = derefStr(first.Item.InvoiceNo)
	}
	for _, src := range items {
		b.DeliveredQuantity = b.DeliveredQuantity.Add(src.Item.DeliveredQuantity)
		b.DeliveredTotalPrice = b.DeliveredTotalPrice.Add(src.Item.DeliveredTotalPrice)
	}
	return b
}

// dateOnly drops the clock so that dates compare by calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
