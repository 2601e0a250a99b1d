package core_test

import (
	"bytes"
	"testing"

	"alltech-erp/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildDashboardWorkbook(t *testing.T) {
	o := newOrder(1, "PO-100", core.OrderTypeCustomer, core.StatusPartiallyDelivered, party("Acme"))
	it := due(delivered(orderItem(1, boltKey, "10", "25"), "4"), 2026, 4, 1)
	rows := core.AggregateDashboard([]core.DashboardSourceItem{{Item: it, Order: o}}, asOf)
	rows = append(rows, core.CombinedRow{CatalogKey: core.CatalogKey{ProjectNo: "ZZZ"}, Error: "build row: boom"})

	f, err := core.BuildDashboardWorkbook(rows)
	require.NoError(t, err)
	defer f.Close()

	// Round-trip through bytes so the test reads what a client downloads.
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	rf, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer rf.Close()

	cell := func(ref string) string {
		v, err := rf.GetCellValue("Dashboard", ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Project No", cell("A1"))
	assert.Equal(t, "Supplier PO Qty", cell("F1"))
	assert.Equal(t, "Customer PO Qty", cell("U1"))
	assert.Equal(t, "Error", cell("AJ1"))

	assert.Equal(t, "PRJ-1", cell("A2"))
	assert.Equal(t, "Hex bolt", cell("D2"))
	// Supplier side absent.
	assert.Equal(t, "-", cell("F2"))
	assert.Equal(t, "-", cell("O2"))
	// Customer approved block.
	assert.Equal(t, "10.00", cell("U2"))
	assert.Equal(t, "25.00", cell("V2"))
	assert.Equal(t, "250.00", cell("W2"))
	assert.Equal(t, "2026-04-01", cell("Y2"))
	assert.Equal(t, "PO-100", cell("Z2"))
	assert.Equal(t, "Acme", cell("AA2"))
	assert.Equal(t, "partially_delivered", cell("AB2"))
	assert.Equal(t, "6.00", cell("AC2"))
	// Customer delivered block.
	assert.Equal(t, "4.00", cell("AD2"))
	assert.Equal(t, "100.00", cell("AF2"))
	assert.Equal(t, "-", cell("AH2"))

	assert.Equal(t, "ZZZ", cell("A3"))
	assert.Equal(t, "-", cell("U3"))
	assert.Equal(t, "build row: boom", cell("AJ3"))
}
