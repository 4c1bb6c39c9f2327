package report

import (
	"fmt"
	"image/color"
	"math"
	"math/cmplx"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/ay_analyzer_go/internal/channel"
)

// elementGrid exposes |U_k| of a dataset as plotter.GridXYZ. Columns are
// element indices, rows are records in file order. Records shorter than the
// widest one are padded with NaN, and infinite magnitudes are shown as NaN.
type elementGrid struct {
	rows [][]float64
	cols int
}

func newElementGrid(ds *channel.Dataset) *elementGrid {
	g := &elementGrid{rows: make([][]float64, len(ds.Records))}
	for _, rec := range ds.Records {
		if len(rec.Elements) > g.cols {
			g.cols = len(rec.Elements)
		}
	}
	for r, rec := range ds.Records {
		row := make([]float64, g.cols)
		for c := range row {
			row[c] = math.NaN()
			if c < len(rec.Elements) {
				if v := cmplx.Abs(rec.Elements[c]); !math.IsInf(v, 0) {
					row[c] = v
				}
			}
		}
		g.rows[r] = row
	}
	return g
}

func (g *elementGrid) Dims() (c, r int)   { return g.cols, len(g.rows) }
func (g *elementGrid) Z(c, r int) float64 { return g.rows[r][c] }
func (g *elementGrid) X(c int) float64    { return float64(c) }
func (g *elementGrid) Y(r int) float64    { return float64(r) }

// valueRange returns the finite min and max of the grid.
func (g *elementGrid) valueRange() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range g.rows {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	return lo, hi, ok
}

// CreateElementHeatmap renders |U_k| for every record of a channel, one row per
// energy point.
func CreateElementHeatmap(ds *channel.Dataset) ([]byte, error) {
	if ds == nil || len(ds.Records) == 0 {
		return nil, fmt.Errorf("no records to plot heatmap")
	}

	grid := newElementGrid(ds)
	cols, rows := grid.Dims()
	if cols == 0 {
		return nil, fmt.Errorf("channel %s has no matrix elements to plot", ds.Label)
	}

	lo, hi, ok := grid.valueRange()
	if !ok {
		return nil, fmt.Errorf("channel %s has no finite matrix elements to plot", ds.Label)
	}
	if lo == hi {
		hi = lo + 1
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("|U| matrix elements, %s", ds.Label)
	p.X.Label.Text = "Element index"
	p.Y.Label.Text = "Tlab (MeV)"

	xTicks := make([]plot.Tick, cols)
	for c := 0; c < cols; c++ {
		xTicks[c] = plot.Tick{Value: float64(c), Label: fmt.Sprintf("U%d", c)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = -0.5
	p.X.Max = float64(cols) - 0.5

	// Label at most ~10 rows so the axis stays readable.
	stride := rows/10 + 1
	var yTicks []plot.Tick
	for r := 0; r < rows; r += stride {
		yTicks = append(yTicks, plot.Tick{Value: float64(r), Label: fmt.Sprintf("%.1f", ds.Records[r].LabEnergy)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(rows) - 0.5

	hm := plotter.NewHeatMap(grid, palette.Heat(64, 1))
	hm.NaN = color.Gray{Y: 200}
	hm.Min = lo
	hm.Max = hi
	p.Add(hm)

	height := vg.Points(math.Max(300, math.Min(900, float64(rows)*12)))
	return renderPNG(p, vg.Points(600), height)
}
