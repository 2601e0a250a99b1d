package core

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const dashboardSheet = "Dashboard"

var dashboardExportHeaders = []string{
	"Project No", "Part No", "Material No", "Description", "UOM",
	// supplier approved
	"Supplier PO Qty", "Supplier PO Unit Price", "Supplier PO Total", "Supplier Lead Time",
	"Supplier Due Date", "Supplier PO No", "Supplier", "Supplier Status", "Supplier Balance",
	// supplier delivered
	"Supplier Delivered Qty", "Supplier Delivered Unit Price", "Supplier Delivered Total",
	"Supplier Penalty %", "Supplier Penalty Amount", "Supplier Invoice No",
	// customer approved
	"Customer PO Qty", "Customer PO Unit Price", "Customer PO Total", "Customer Lead Time",
	"Customer Due Date", "Customer PO No", "Customer", "Customer Status", "Customer Balance",
	// customer delivered
	"Customer Delivered Qty", "Customer Delivered Unit Price", "Customer Delivered Total",
	"Customer Penalty %", "Customer Penalty Amount", "Customer Invoice No",
	"Error",
}

const (
	approvedCols  = 9
	deliveredCols = 6
)

func approvedCells(b *ApprovedBlock) []any {
	if b == nil {
		return dashes(approvedCols)
	}
	return []any{
		fixed2(b.POQuantity), fixed2(b.POUnitPrice), fixed2(b.POTotalPrice), orDash(b.LeadTime),
		b.DueDateDisplay, orDash(b.PONumber), orDash(b.CustomerSupplierName), string(b.Status),
		fixed2(b.BalanceQuantityUndelivered),
	}
}

func deliveredCells(b *DeliveredBlock) []any {
	if b == nil {
		return dashes(deliveredCols)
	}
	pct, amt := dueDateNone, dueDateNone
	if b.PenaltyPercentage != nil {
		pct = fixed2(*b.PenaltyPercentage)
	}
	if b.PenaltyAmount != nil {
		amt = fixed2(*b.PenaltyAmount)
	}
	return []any{
		fixed2(b.DeliveredQuantity), fixed2(b.DeliveredUnitPrice), fixed2(b.DeliveredTotalPrice),
		pct, amt, orDash(b.InvoiceNo),
	}
}

func dashes(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = dueDateNone
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return dueDateNone
	}
	return s
}

// BuildDashboardWorkbook renders rows to a single-sheet workbook. Absent sides
// are written as "-" and amounts with two decimals.
func BuildDashboardWorkbook(rows []CombinedRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", dashboardSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	overdueStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#C00000", Bold: true},
	})

	for i, h := range dashboardExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(dashboardSheet, cell, h)
		f.SetCellStyle(dashboardSheet, cell, cell, headerStyle)
	}

	for r, row := range rows {
		values := []any{row.ProjectNo, row.PartNo, row.MaterialNo, row.Description, row.UOM}
		values = append(values, approvedCells(row.SupplierApproved)...)
		values = append(values, deliveredCells(row.SupplierDelivered)...)
		values = append(values, approvedCells(row.CustomerApproved)...)
		values = append(values, deliveredCells(row.CustomerDelivered)...)
		values = append(values, row.Error)

		start, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(dashboardSheet, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write dashboard row %d: %w", r+1, err)
		}

		dueCols := []struct {
			col int
			b   *ApprovedBlock
		}{
			{col: 10, b: row.SupplierApproved},
			{col: 10 + approvedCols + deliveredCols, b: row.CustomerApproved},
		}
		for _, dc := range dueCols {
			if dc.b != nil && dc.b.Overdue {
				cell, _ := excelize.CoordinatesToCellName(dc.col, r+2)
				f.SetCellStyle(dashboardSheet, cell, cell, overdueStyle)
			}
		}
	}

	widths := map[string]float64{"A": 12, "B": 14, "C": 14, "D": 32, "E": 8}
	for col, w := range widths {
		f.SetColWidth(dashboardSheet, col, col, w)
	}
	last, _ := excelize.ColumnNumberToName(len(dashboardExportHeaders) - 1)
	f.SetColWidth(dashboardSheet, "F", last, 16)

	return f, nil
}

// ExportDashboard renders every row matching f. Paging fields are ignored.
func (s *dashboardService) ExportDashboard(ctx context.Context, f DashboardFilter) (*excelize.File, string, error) {
	asOf, err := ParseAsOfDate(f.AsOfDate)
	if err != nil {
		return nil, "", err
	}

	keys, err := s.loadKeys(ctx, newKeyScope(f.Search, asOf.AddDate(0, 0, 1)), 0, 0)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.rowsFor(ctx, keys, asOf)
	if err != nil {
		return nil, "", err
	}

	wb, err := BuildDashboardWorkbook(rows)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("dashboard exported", zap.Int("rows", len(rows)), zap.String("as_of_date", asOf.Format(time.DateOnly)))
	return wb, fmt.Sprintf("dashboard_%s.xlsx", asOf.Format(time.DateOnly)), nil
}
