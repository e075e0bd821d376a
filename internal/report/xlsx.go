// =============================================================================
// Firefly Amazon Reconciler - Run Report
// =============================================================================
//
// Writes one reconciliation run as an XLSX workbook: a Summary sheet with
// the run totals and an Orders sheet with one row per decided group plus
// the orders left unresolved. The report is a local artifact, so it is
// written in dry-run mode too — that is the whole point of inspecting a
// dry run.
//
// =============================================================================

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/reconcile"
)

const (
	summarySheet = "Summary"
	ordersSheet  = "Orders"
)

// Write renders the summary to path. An existing file is overwritten.
func Write(path string, summary *reconcile.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}
	if err := writeOrdersSheet(f, summary); err != nil {
		return err
	}

	// The default sheet is replaced by Summary.
	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary *reconcile.Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	matched, last, manual, todo := summary.Counts()
	rows := [][]any{
		{"Run ID", summary.RunID},
		{"Started", summary.Started.Format("2006-01-02 15:04:05")},
		{"Finished", summary.Finished.Format("2006-01-02 15:04:05")},
		{"Passes", summary.Passes},
		{"Matched", matched},
		{"Last-standing", last},
		{"Manual", manual},
		{"Flagged TODO", todo},
		{"Tagged ERROR", len(summary.Errored)},
		{"Skipped orders", len(summary.Skipped)},
	}

	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return nil
}

func writeOrdersSheet(f *excelize.File, summary *reconcile.Summary) error {
	if _, err := f.NewSheet(ordersSheet); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	rows := [][]any{
		{"Order ID", "Group ID", "Resolution", "TODO", "Amount", "Shipment"},
	}
	for _, o := range summary.Outcomes {
		rows = append(rows, []any{
			o.OrderID, o.GroupID, o.Resolution.String(), o.Todo, o.Amount, o.ShipmentTitle,
		})
	}
	for _, orderID := range summary.Errored {
		rows = append(rows, []any{orderID, "", "error", false, "", ""})
	}
	for _, skipped := range summary.Skipped {
		rows = append(rows, []any{skipped.OrderID, "", "skipped: " + skipped.Reason, false, "", ""})
	}

	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return nil
}
