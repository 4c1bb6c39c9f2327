package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	inchToMm           = 25.4
	pdfPageWidthPortA4 = 210.0
	pdfPageHeightA4    = 297.0
	pdfMargin          = 0.5 * inchToMm
	pdfContentWidth    = pdfPageWidthPortA4 - (2 * pdfMargin)
)

// Keys of the images BuildPDFReport knows how to place.
const (
	ImageAyPlot         = "ay_plot"
	ImageComparisonPlot = "comparison_plot"
	ImageHeatmapPrefix  = "heatmap_"
)

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightA4 - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["note"] = func() {
		s.pdf.SetFont("Arial", "I", 9)
		s.pdf.SetTextColor(90, 90, 90)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellRed"] = func() { // clamped reference angles
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(math.Max(1, float64(len(lines))) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

// writeTable draws a bordered table. rowStyle picks the cell style per row and
// may be nil.
func (s *pdfStyler) writeTable(headers []string, colWidthsRel []float64, rows [][]string, rowStyle func(i int) string) {
	widths := make([]float64, len(colWidthsRel))
	for i, rel := range colWidthsRel {
		widths[i] = rel * pdfContentWidth
	}

	header := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	header()
	for r, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			header()
		}
		style := "tableCell"
		if rowStyle != nil {
			style = rowStyle(r)
		}
		s.applyStyle(style)
		x := pdfMargin
		for i, cell := range row {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
	s.addSpacer(3)
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, height float64, caption string) {
	s.pdf.RegisterImageReader(imageName, "PNG", bytes.NewReader(imageBytes))

	if width > pdfContentWidth {
		ratio := pdfContentWidth / width
		width = pdfContentWidth
		height *= ratio
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.Image(imageName, x, s.currentY, width, height, false, "PNG", 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "note", "C")
	}
	s.addSpacer(2)
}

// BuildPDFReport writes the run summary as a PDF: selection, Ay table,
// comparison statistics and any plots found in images (keyed by the Image*
// constants).
func BuildPDFReport(w io.Writer, data ReportData, images map[string][]byte) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle("Deuteron-proton analyzing power report", false)
	pdf.SetCreator("ay_analyzer", false)

	styler := newPDFStyler(pdf)
	styler.newPage()

	sel := data.Selection
	styler.writeParagraph("Deuteron-Proton Analyzing Power Ay Report", "h1", "C")
	styler.addSpacer(3)
	if data.RunID != "" {
		styler.writeParagraph(fmt.Sprintf("Run %s", data.RunID), "note", "C")
	}
	if !data.GeneratedAt.IsZero() {
		styler.writeParagraph(data.GeneratedAt.UTC().Format(time.RFC1123), "note", "C")
	}
	styler.addSpacer(5)

	styler.writeParagraph("Selected Energy Point", "h2", "L")
	summary := [][]string{
		{"Channel", sel.ChannelLabel},
		{"Tlab (MeV)", fmt.Sprintf("%.2f", sel.Record.LabEnergy)},
		{"Target Tlab (MeV)", fmt.Sprintf("%.2f", sel.TargetEnergy)},
		{"Difference (MeV)", fmt.Sprintf("%.2f", sel.EnergyDifference)},
		{"Ecm (MeV)", fmt.Sprintf("%.2f", sel.Record.CMEnergy)},
		{"Momentum index", fmt.Sprintf("%d", sel.Record.MomentumIndex)},
		{"Matrix elements", fmt.Sprintf("%d", len(sel.Record.Elements))},
		{"Formula", FormulaDescription(data.Variant)},
	}
	if data.Potential != "" {
		summary = append(summary, []string{"Potential", data.Potential})
	}
	styler.writeTable([]string{"Quantity", "Value"}, []float64{0.3, 0.7}, summary, nil)

	if len(data.Channels) > 0 {
		styler.writeParagraph("Loaded Channels", "h2", "L")
		rows := make([][]string, len(data.Channels))
		for i, ch := range data.Channels {
			rows[i] = []string{
				ch.Label,
				fmt.Sprintf("%d", ch.Records),
				fmt.Sprintf("%d", ch.SkippedLines),
				formatEnergyRange(ch.MinEnergy, ch.MaxEnergy),
			}
		}
		styler.writeTable([]string{"Channel", "Records", "Skipped lines", "Tlab range (MeV)"},
			[]float64{0.3, 0.2, 0.2, 0.3}, rows, nil)
	}

	if img, ok := images[ImageAyPlot]; ok && len(img) > 0 {
		styler.writeParagraph("Ay vs Scattering Angle", "h2", "L")
		styler.addImage(img, ImageAyPlot, pdfContentWidth*0.85, pdfContentWidth*0.85*(2.0/3.0),
			fmt.Sprintf("Theoretical Ay at Tlab = %.2f MeV", sel.Record.LabEnergy))
	}

	styler.newPage()
	styler.writeParagraph("Theoretical Ay Table", "h2", "L")
	ayRows := make([][]string, len(data.Table))
	for i, p := range data.Table {
		ayRows[i] = []string{fmt.Sprintf("%.2f", p.Angle), fmt.Sprintf("%.6f", p.Ay)}
	}
	styler.writeTable([]string{"Angle (deg)", "Ay"}, []float64{0.5, 0.5}, ayRows, nil)

	if data.HasComparison() {
		ref, res := data.Reference, data.Comparison
		styler.newPage()
		styler.writeParagraph("Comparison with Reference Data", "h2", "L")
		if ref.Simulated {
			styler.writeParagraph("The reference points are simulated placeholders, not measurements.", "note", "L")
		}
		stats := [][]string{
			{"Reference", ref.Name},
			{"Points", fmt.Sprintf("%d", res.Points)},
			{"Chi2", fmt.Sprintf("%.3f", res.ChiSquared)},
			{"Reduced chi2", fmt.Sprintf("%.3f", res.ReducedChiSquared)},
			{"Agreement", res.Agreement},
			{"Clamped angles", fmt.Sprintf("%d", res.OutOfRange)},
		}
		if ref.Energy != "" {
			stats = append(stats[:1], append([][]string{{"Energy", ref.Energy}}, stats[1:]...)...)
		}
		styler.writeTable([]string{"Statistic", "Value"}, []float64{0.3, 0.7}, stats, nil)

		cmpRows := make([][]string, len(res.Records))
		for i, r := range res.Records {
			cmpRows[i] = []string{
				fmt.Sprintf("%.1f", r.Angle),
				fmt.Sprintf("%.3f", r.ExperimentalAy),
				fmt.Sprintf("%.3f", r.ExperimentalError),
				fmt.Sprintf("%.3f", r.TheoreticalAy),
				fmt.Sprintf("%.3f", r.AbsoluteDifference),
			}
		}
		styler.writeTable(
			[]string{"Angle (deg)", "Exp. Ay", "Error", "Theory Ay", "|Difference|"},
			[]float64{0.2, 0.2, 0.2, 0.2, 0.2},
			cmpRows,
			func(i int) string {
				if res.Records[i].OutOfRange {
					return "tableCellRed"
				}
				return "tableCell"
			})

		if img, ok := images[ImageComparisonPlot]; ok && len(img) > 0 {
			styler.addImage(img, ImageComparisonPlot, pdfContentWidth*0.85, pdfContentWidth*0.85*(2.0/3.0),
				"Theoretical Ay compared with reference points")
		}
	}

	for _, ch := range data.Channels {
		key := ImageHeatmapPrefix + ch.Label
		img, ok := images[key]
		if !ok || len(img) == 0 {
			continue
		}
		styler.newPage()
		styler.writeParagraph(fmt.Sprintf("Matrix Elements: %s", ch.Label), "h2", "L")
		styler.addImage(img, key, pdfContentWidth*0.8, pdfContentWidth*0.8*1.2,
			fmt.Sprintf("|U| per element and energy point, %s", ch.Label))
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out PDF: %w", err)
	}
	return pdf.Output(w)
}

func formatEnergyRange(lo, hi float64) string {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return "-"
	}
	return fmt.Sprintf("%.2f - %.2f", lo, hi)
}
