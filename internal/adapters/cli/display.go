package cli

import (
	"fmt"
	"io"
	"strings"

	"alltech-erp/internal/core"
)

const dashboardWidth = 132

func printDashboard(out io.Writer, page *core.DashboardPage) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", dashboardWidth))
	fmt.Fprintf(out, "  DASHBOARD as of %s  (%d keys)\n", page.AsOfDate, page.Pagination.Total)
	fmt.Fprintln(out, strings.Repeat("=", dashboardWidth))
	fmt.Fprintf(out, "  %-10s %-10s %-10s %-16s %-5s | %10s %10s %-20s | %10s %10s %-20s\n",
		"PROJECT", "PART", "MATERIAL", "DESCRIPTION", "UOM",
		"SUP QTY", "SUP DLV", "SUP DUE",
		"CUST QTY", "CUST DLV", "CUST DUE")
	fmt.Fprintln(out, strings.Repeat("-", dashboardWidth))

	for _, row := range page.Rows {
		if row.Error != "" {
			fmt.Fprintf(out, "  %-10s %-10s %-10s %-16s %-5s | ERROR: %s\n",
				truncate(row.ProjectNo, 10), truncate(row.PartNo, 10), truncate(row.MaterialNo, 10),
				truncate(row.Description, 16), truncate(row.UOM, 5), row.Error)
			continue
		}
		supQty, supDue := approvedCols(row.SupplierApproved)
		custQty, custDue := approvedCols(row.CustomerApproved)
		fmt.Fprintf(out, "  %-10s %-10s %-10s %-16s %-5s | %10s %10s %-20s | %10s %10s %-20s\n",
			truncate(row.ProjectNo, 10), truncate(row.PartNo, 10), truncate(row.MaterialNo, 10),
			truncate(row.Description, 16), truncate(row.UOM, 5),
			supQty, deliveredQty(row.SupplierDelivered), supDue,
			custQty, deliveredQty(row.CustomerDelivered), custDue)
	}
	fmt.Fprintln(out, strings.Repeat("=", dashboardWidth))
}

func approvedCols(b *core.ApprovedBlock) (qty, due string) {
	if b == nil {
		return "-", "-"
	}
	due = b.DueDateDisplay
	if b.Overdue {
		due += " !"
	}
	return b.POQuantity.StringFixed(2), truncate(due, 20)
}

func deliveredQty(b *core.DeliveredBlock) string {
	if b == nil {
		return "-"
	}
	return b.DeliveredQuantity.StringFixed(2)
}

func printOrders(out io.Writer, list *core.PurchaseOrderList) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-6s %-16s %-9s %-24s %-20s\n", "ID", "PO NUMBER", "TYPE", "PARTY", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 81))
	for _, po := range list.Orders {
		fmt.Fprintf(out, "  %-6d %-16s %-9s %-24s %-20s\n",
			po.ID, truncate(po.PONumber, 16), po.OrderType, truncate(po.PartyName, 24), po.Status)
	}
	fmt.Fprintln(out, strings.Repeat("-", 81))
	fmt.Fprintf(out, "  page %d of %d, %d orders\n", list.Pagination.Page, list.Pagination.TotalPages, list.Pagination.Total)
}
