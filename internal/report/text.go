package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/user/ay_analyzer_go/internal/analysis"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// WriteAyReport writes the theoretical Ay table: a # header describing where the
// numbers came from, then one "angle  Ay" row per table entry.
func WriteAyReport(w io.Writer, data ReportData) error {
	if err := data.Table.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	sel := data.Selection

	fmt.Fprintln(bw, "# Deuteron-proton vector analyzing power Ay (theoretical)")
	writeRunHeader(bw, data)
	fmt.Fprintf(bw, "# Channel: %s\n", sel.ChannelLabel)
	fmt.Fprintf(bw, "# Tlab = %.2f MeV (target %.2f MeV, difference %.2f MeV)\n",
		sel.Record.LabEnergy, sel.TargetEnergy, sel.EnergyDifference)
	fmt.Fprintf(bw, "# Ecm = %.2f MeV\n", sel.Record.CMEnergy)
	fmt.Fprintf(bw, "# Momentum index: %d\n", sel.Record.MomentumIndex)
	fmt.Fprintf(bw, "# Formula: %s\n", FormulaDescription(data.Variant))
	for _, src := range data.Sources {
		fmt.Fprintf(bw, "# Source: %s\n", src)
	}
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "# angle(deg)    Ay")
	for _, p := range data.Table {
		fmt.Fprintf(bw, "%8.2f  %12.6f\n", p.Angle, p.Ay)
	}

	if err := bw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to write Ay report", err)
	}
	return nil
}

// WriteComparisonReport writes the comparison summary block followed by one
// row per reference angle.
func WriteComparisonReport(w io.Writer, data ReportData) error {
	if !data.HasComparison() {
		return apperrors.NewValidationError("no comparison result to report")
	}

	bw := bufio.NewWriter(w)
	ref, res := data.Reference, data.Comparison

	fmt.Fprintln(bw, "# Deuteron-proton Ay comparison report")
	fmt.Fprintln(bw, "# "+strings.Repeat("=", 50))
	writeRunHeader(bw, data)
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "# Reference data:")
	fmt.Fprintf(bw, "#   Name: %s\n", ref.Name)
	if ref.Energy != "" {
		fmt.Fprintf(bw, "#   Energy: %s\n", ref.Energy)
	}
	if ref.Note != "" {
		fmt.Fprintf(bw, "#   Note: %s\n", ref.Note)
	}
	fmt.Fprintf(bw, "#   Points: %d\n", len(ref.Points))
	if n := len(ref.Points); n > 0 {
		fmt.Fprintf(bw, "#   Angle range: %.1f - %.1f deg\n", ref.Points[0].Angle, ref.Points[n-1].Angle)
	}
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "# Theory:")
	if data.Selection.ChannelLabel != "" {
		fmt.Fprintf(bw, "#   Channel: %s, Tlab = %.2f MeV\n", data.Selection.ChannelLabel, data.Selection.Record.LabEnergy)
		fmt.Fprintf(bw, "#   Formula: %s\n", FormulaDescription(data.Variant))
	}
	for _, src := range data.Sources {
		fmt.Fprintf(bw, "#   File: %s\n", src)
	}
	if n := len(data.Table); n > 0 {
		fmt.Fprintf(bw, "#   Points: %d, angle range %.1f - %.1f deg\n", n, data.Table[0].Angle, data.Table[n-1].Angle)
	}
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "# Statistics:")
	fmt.Fprintf(bw, "#   Points: %d\n", res.Points)
	fmt.Fprintf(bw, "#   Chi2: %.2f\n", res.ChiSquared)
	fmt.Fprintf(bw, "#   Reduced chi2: %.2f\n", res.ReducedChiSquared)
	fmt.Fprintf(bw, "#   Agreement: %s\n", res.Agreement)
	fmt.Fprintf(bw, "#   Out of theoretical range: %d\n", res.OutOfRange)
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "# angle   expAy   error   theoAy   diff")
	fmt.Fprintln(bw, "# "+strings.Repeat("-", 45))
	for _, r := range res.Records {
		fmt.Fprintf(bw, "%6.1f   %7.3f  %6.3f  %7.3f  %6.3f\n",
			r.Angle, r.ExperimentalAy, r.ExperimentalError, r.TheoreticalAy, r.AbsoluteDifference)
	}

	if err := bw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to write comparison report", err)
	}
	return nil
}

func writeRunHeader(bw *bufio.Writer, data ReportData) {
	if data.RunID != "" {
		fmt.Fprintf(bw, "# Run: %s\n", data.RunID)
	}
	if !data.GeneratedAt.IsZero() {
		fmt.Fprintf(bw, "# Generated: %s\n", data.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if data.Potential != "" {
		fmt.Fprintf(bw, "# Potential: %s\n", data.Potential)
	}
}

// ReadAyTable reads a table written by WriteAyReport, or any text whose data
// rows start with two numeric columns "angle Ay". Lines starting with # and
// blank lines are ignored. The result is validated for increasing angles.
func ReadAyTable(r io.Reader) (analysis.AyTable, error) {
	table := make(analysis.AyTable, 0)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: expected angle and Ay columns", lineNo), nil).
				WithContext("line", lineNo)
		}
		angle, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: invalid angle", lineNo), err)
		}
		ay, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: invalid Ay", lineNo), err)
		}
		table = append(table, analysis.AyPoint{Angle: angle, Ay: ay})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read Ay table", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
