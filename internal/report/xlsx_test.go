package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/reconcile"
)

func TestWriteReport(t *testing.T) {
	started := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	summary := &reconcile.Summary{
		RunID:    "test-run",
		Started:  started,
		Finished: started.Add(42 * time.Second),
		Passes:   2,
		Outcomes: []reconcile.Outcome{
			{
				OrderID:       "302-1111111-1111111",
				GroupID:       "10",
				Resolution:    ledger.TagMatch,
				Amount:        "5.00",
				ShipmentTitle: "Delivered 12 August",
			},
			{
				OrderID:    "302-2222222-2222222",
				GroupID:    "11",
				Resolution: ledger.TagManual,
				Todo:       true,
				Amount:     "9.99",
			},
		},
		Skipped: []reconcile.SkippedOrder{
			{OrderID: "302-3333333-3333333", Reason: "scrape order 302-3333333-3333333: boom"},
		},
	}

	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, Write(path, summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, summarySheet)
	assert.Contains(t, sheets, ordersSheet)
	assert.NotContains(t, sheets, "Sheet1")

	runID, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "test-run", runID)

	orders, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	// Header, two outcomes, one skipped order.
	require.Len(t, orders, 4)
	assert.Equal(t, "302-1111111-1111111", orders[1][0])
	assert.Equal(t, "amazon_match", orders[1][2])
	assert.Equal(t, "amazon_manual", orders[2][2])
	assert.Contains(t, orders[3][2], "skipped")
}
