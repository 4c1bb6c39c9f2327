package report

import (
	"fmt"
	"math"
	"time"

	"github.com/user/ay_analyzer_go/internal/analysis"
	"github.com/user/ay_analyzer_go/internal/channel"
	"github.com/user/ay_analyzer_go/internal/comparison"
)

// Output file names. The Ay report and plot names carry the selected Tlab.
const (
	ComparisonReportFileName = "Ay_comparison_report.txt"
	ComparisonPlotFileName   = "Ay_comparison.png"
	HeatmapFileNamePattern   = "U_elements_%s.png"
	PDFReportFileName        = "Ay_report.pdf"
	WorkbookFileName         = "Ay_results.xlsx"
)

// AyReportFileName is the name of the theoretical Ay table for a lab energy.
func AyReportFileName(tlab float64) string {
	return fmt.Sprintf("Ay_theoretical_results_%.0fMeV.txt", tlab)
}

// AyPlotFileName is the name of the Ay-versus-angle plot for a lab energy.
func AyPlotFileName(tlab float64) string {
	return fmt.Sprintf("Ay_vs_angle_Tlab_%.0fMeV.png", tlab)
}

// ChannelSummary describes one loaded parity channel.
type ChannelSummary struct {
	Label        string
	Source       string
	Records      int
	SkippedLines int
	MinEnergy    float64 // NaN when the channel is empty
	MaxEnergy    float64
}

// SummarizeChannel builds the summary row for a dataset.
func SummarizeChannel(ds *channel.Dataset, source string, diag channel.Diagnostics) ChannelSummary {
	s := ChannelSummary{
		Label:        ds.Label,
		Source:       source,
		Records:      len(ds.Records),
		SkippedLines: diag.SkippedLines,
		MinEnergy:    math.NaN(),
		MaxEnergy:    math.NaN(),
	}
	for i, rec := range ds.Records {
		if i == 0 || rec.LabEnergy < s.MinEnergy {
			s.MinEnergy = rec.LabEnergy
		}
		if i == 0 || rec.LabEnergy > s.MaxEnergy {
			s.MaxEnergy = rec.LabEnergy
		}
	}
	return s
}

// ReportData is everything the writers need for one run.
type ReportData struct {
	RunID       string
	GeneratedAt time.Time
	Potential   string
	Variant     analysis.Variant
	Sources     []string
	Selection   analysis.SelectionResult
	Table       analysis.AyTable
	Channels    []ChannelSummary

	// Set only when a comparison was run.
	Reference  *comparison.ReferenceDataset
	Comparison *comparison.Result
}

// HasComparison reports whether comparison output should be written.
func (d ReportData) HasComparison() bool {
	return d.Reference != nil && d.Comparison != nil
}

// FormulaDescription names the Ay approximation used.
func FormulaDescription(v analysis.Variant) string {
	switch v {
	case analysis.FourElement:
		return "four-element: Im(conj(U00+U11)*(U01+U10)) / |U00+U11|^2"
	case analysis.TwoElement:
		return "two-element: Im(conj(U00)*U01) / (|U00|^2+|U01|^2)"
	default:
		return v.String()
	}
}
