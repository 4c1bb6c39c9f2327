package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/ay_analyzer_go/internal/analysis"
	"github.com/user/ay_analyzer_go/internal/comparison"
)

var (
	theoryColor    = color.RGBA{B: 255, A: 255}
	referenceColor = color.RGBA{R: 255, A: 255}
	zeroLineColor  = color.Gray{Y: 128}
)

// errorPoints feeds plotter.NewYErrorBars with symmetric errors.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// CreateAyPlot renders Ay against scattering angle as a PNG.
func CreateAyPlot(table analysis.AyTable, title string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no Ay values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Scattering angle theta_cm (deg)"
	p.Y.Label.Text = "Analyzing power Ay"
	setAngleAxis(p)
	p.Add(plotter.NewGrid())

	if err := addZeroLine(p); err != nil {
		return nil, err
	}

	line, err := plotter.NewLine(tableXYs(table))
	if err != nil {
		return nil, fmt.Errorf("failed to create Ay line: %w", err)
	}
	line.Color = theoryColor
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("Theory", line)
	p.Legend.Top = true

	return renderPNG(p, vg.Points(720), vg.Points(480))
}

// CreateComparisonPlot draws the theoretical curve with the reference points and
// their error bars.
func CreateComparisonPlot(table analysis.AyTable, ref *comparison.ReferenceDataset, result *comparison.Result) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no Ay values to plot")
	}
	if ref == nil || len(ref.Points) == 0 {
		return nil, fmt.Errorf("no reference points to plot")
	}

	p := plot.New()
	p.Title.Text = "Ay: theory vs reference"
	if ref.Energy != "" {
		p.Title.Text = fmt.Sprintf("Ay: theory vs reference (%s)", ref.Energy)
	}
	p.X.Label.Text = "Scattering angle theta_cm (deg)"
	p.Y.Label.Text = "Analyzing power Ay"
	setAngleAxis(p)
	p.Add(plotter.NewGrid())

	if err := addZeroLine(p); err != nil {
		return nil, err
	}

	line, err := plotter.NewLine(tableXYs(table))
	if err != nil {
		return nil, fmt.Errorf("failed to create theory line: %w", err)
	}
	line.Color = theoryColor
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)

	pts := errorPoints{
		XYs:     make(plotter.XYs, len(ref.Points)),
		YErrors: make(plotter.YErrors, len(ref.Points)),
	}
	for i, rp := range ref.Points {
		pts.XYs[i] = plotter.XY{X: rp.Angle, Y: rp.Ay}
		pts.YErrors[i].Low = rp.Error
		pts.YErrors[i].High = rp.Error
	}

	scatter, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference scatter: %w", err)
	}
	scatter.GlyphStyle.Color = referenceColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)

	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create error bars: %w", err)
	}
	bars.LineStyle.Color = referenceColor
	bars.CapWidth = vg.Points(4)

	p.Add(bars, scatter)

	p.Legend.Add("Theory", line)
	refLabel := "Reference"
	if ref.Simulated {
		refLabel = "Reference (simulated)"
	}
	p.Legend.Add(refLabel, scatter)
	if result != nil {
		p.Legend.Add(fmt.Sprintf("reduced chi2 = %.2f (%s)", result.ReducedChiSquared, result.Agreement))
	}
	p.Legend.Top = true

	return renderPNG(p, vg.Points(720), vg.Points(480))
}

func tableXYs(table analysis.AyTable) plotter.XYs {
	pts := make(plotter.XYs, len(table))
	for i, pt := range table {
		pts[i] = plotter.XY{X: pt.Angle, Y: pt.Ay}
	}
	return pts
}

func setAngleAxis(p *plot.Plot) {
	p.X.Min = 0
	p.X.Max = 180
	p.X.Tick.Marker = plot.ConstantTicks(generateTicks(0, 180, 30))
}

func addZeroLine(p *plot.Plot) error {
	zero, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 180, Y: 0}})
	if err != nil {
		return fmt.Errorf("failed to create zero line: %w", err)
	}
	zero.Color = zeroLineColor
	zero.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(zero)
	return nil
}

func renderPNG(p *plot.Plot, width, height vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// generateTicks returns labelled major ticks from min to max inclusive.
func generateTicks(min, max, step int) []plot.Tick {
	if step <= 0 {
		return []plot.Tick{{Value: float64(min), Label: fmt.Sprintf("%d", min)}}
	}
	var ticks []plot.Tick
	for i := min; i <= max; i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	return ticks
}
