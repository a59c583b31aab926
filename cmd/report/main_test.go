package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/service"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	tabs := map[string][][]interface{}{
		"Products": {
			{"ID", "Name", "Stock", "Min Stock", "Price", "Location"},
			{"W", "Widget", 120, 5, "3.00", "A-01"},
			{"E", "Empty", 0, 10, "2.00", "C-01"},
		},
		"Transactions": {
			{"Date", "SKU", "Qty", "Type", "Batch"},
			{"2024-02-10", "W", 100, "IN", "B1"},
			{"2024-02-20", "W", 50, "IN", "B2"},
			{"2024-02-25", "Widget", 30, "OUT", ""},
		},
		"Damages":     {{"Date", "SKU", "Qty", "Reason"}},
		"CycleCounts": {{"Date", "SKU", "System Qty", "Counted Qty"}},
	}
	for name, rows := range tabs {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	require.NoError(t, a.Run(append([]string{"report"}, args...)))
	return out.Bytes()
}

func TestReportReorderFromWorkbook(t *testing.T) {
	path := writeWorkbook(t)

	var report service.ReorderReport
	require.NoError(t, json.Unmarshal(run(t, "--workbook", path, "--as-of", "2024-03-01", "reorder"), &report))
	assert.False(t, report.Partial)
	require.Len(t, report.Suggestions, 1)
	assert.Equal(t, "E", report.Suggestions[0].ID)
	s := report.Suggestions[0]
	assert.Equal(t, "Critical: Out of Stock", s.Reason)
	assert.True(t, s.EstimatedCost.Equal(decimal.NewFromInt(2).Mul(decimal.NewFromInt(int64(s.SuggestedQty)))))
}

func TestReportAllocate(t *testing.T) {
	path := writeWorkbook(t)

	var report service.AllocationReport
	require.NoError(t, json.Unmarshal(
		run(t, "--workbook", path, "--as-of", "2024-03-01", "allocate", "--sku", "W", "--qty", "100"), &report))
	require.Len(t, report.Preview.Allocations, 2)
	assert.Equal(t, 70, report.Preview.Allocations[0].QtyFromLayer)
	assert.True(t, report.Preview.Fulfilled)
}

func TestReportRejectsBadOverride(t *testing.T) {
	path := writeWorkbook(t)
	a := newApp()
	a.Writer = &bytes.Buffer{}
	err := a.Run([]string{"report", "--workbook", path, "--method", "LIFO", "aging"})
	assert.Error(t, err)
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "class-a-boundary", flagName("class_a_boundary"))
}

func TestAutoKeyUsesSnapshotID(t *testing.T) {
	report := &service.AgingReport{ReportMeta: service.ReportMeta{SnapshotID: "3f2a"}}
	assert.Equal(t, "reports/aging-3f2a.json", autoKey("reports/", "aging", report))

	dashboard := &service.Dashboard{ReportMeta: service.ReportMeta{SnapshotID: "beef"}}
	assert.Equal(t, "reports/dashboard-beef.json", autoKey("reports/", "dashboard", dashboard))

	assert.Equal(t, "reports/x-unknown.json", autoKey("reports/", "x", map[string]int{}))
}

func TestReportAcceptsEngineThresholdFlags(t *testing.T) {
	path := writeWorkbook(t)

	var report service.AgingReport
	require.NoError(t, json.Unmarshal(
		run(t, "--workbook", path, "--as-of", "2024-03-01", "--slow-moving-days", "2", "--dead-stock-days", "3", "aging"), &report))
	found := false
	for _, e := range report.Entries {
		if e.ID == "W" {
			found = true
			assert.Equal(t, 5, e.DaysSinceLastSale)
			assert.Equal(t, "DEAD_STOCK", string(e.MovementStatus))
		}
	}
	assert.True(t, found)
}
