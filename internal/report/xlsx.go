package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
)

const (
	sheetAy         = "Ay"
	sheetComparison = "Comparison"
	sheetChannels   = "Channels"
	sheetRun        = "Run"
)

// WriteWorkbook writes the run as a spreadsheet with one sheet each for the Ay
// table, the comparison (when present), the loaded channels and run metadata.
func WriteWorkbook(w io.Writer, data ReportData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeAySheet(f, data); err != nil {
		return err
	}
	if data.HasComparison() {
		if err := writeComparisonSheet(f, data); err != nil {
			return err
		}
	}
	if err := writeChannelsSheet(f, data); err != nil {
		return err
	}
	if err := writeRunSheet(f, data); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheetAy)
	if err != nil {
		return fmt.Errorf("failed to locate %s sheet: %w", sheetAy, err)
	}
	f.SetActiveSheet(idx)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze %s header: %w", sheet, err)
	}
	return nil
}

func writeAySheet(f *excelize.File, data ReportData) error {
	rows := make([][]interface{}, len(data.Table))
	for i, p := range data.Table {
		rows[i] = []interface{}{p.Angle, p.Ay}
	}
	return writeRows(f, sheetAy, []interface{}{"Angle (deg)", "Ay"}, rows)
}

func writeComparisonSheet(f *excelize.File, data ReportData) error {
	res := data.Comparison
	rows := make([][]interface{}, len(res.Records))
	for i, r := range res.Records {
		rows[i] = []interface{}{r.Angle, r.ExperimentalAy, r.ExperimentalError, r.TheoreticalAy, r.AbsoluteDifference, r.OutOfRange}
	}
	if err := writeRows(f, sheetComparison,
		[]interface{}{"Angle (deg)", "Exp. Ay", "Error", "Theory Ay", "|Difference|", "Clamped"}, rows); err != nil {
		return err
	}

	summary := [][]interface{}{
		{"Points", res.Points},
		{"Chi2", res.ChiSquared},
		{"Reduced chi2", res.ReducedChiSquared},
		{"Agreement", res.Agreement},
	}
	for i := range summary {
		cell, err := excelize.CoordinatesToCellName(8, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetComparison, cell, &summary[i]); err != nil {
			return fmt.Errorf("failed to write comparison summary: %w", err)
		}
	}
	return nil
}

func writeChannelsSheet(f *excelize.File, data ReportData) error {
	rows := make([][]interface{}, len(data.Channels))
	for i, ch := range data.Channels {
		rows[i] = []interface{}{ch.Label, ch.Source, ch.Records, ch.SkippedLines, cellFloat(ch.MinEnergy), cellFloat(ch.MaxEnergy)}
	}
	return writeRows(f, sheetChannels,
		[]interface{}{"Channel", "Source", "Records", "Skipped lines", "Min Tlab (MeV)", "Max Tlab (MeV)"}, rows)
}

func writeRunSheet(f *excelize.File, data ReportData) error {
	sel := data.Selection
	rows := [][]interface{}{
		{"Run", data.RunID},
		{"Potential", data.Potential},
		{"Formula", FormulaDescription(data.Variant)},
		{"Channel", sel.ChannelLabel},
		{"Tlab (MeV)", sel.Record.LabEnergy},
		{"Target Tlab (MeV)", sel.TargetEnergy},
		{"Difference (MeV)", sel.EnergyDifference},
		{"Ecm (MeV)", sel.Record.CMEnergy},
		{"Momentum index", sel.Record.MomentumIndex},
	}
	if !data.GeneratedAt.IsZero() {
		rows = append(rows, []interface{}{"Generated", data.GeneratedAt.UTC()})
	}
	return writeRows(f, sheetRun, []interface{}{"Key", "Value"}, rows)
}

// cellFloat maps NaN to an empty cell.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return ""
	}
	return v
}
