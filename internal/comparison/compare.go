package comparison

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/user/ay_analyzer_go/internal/analysis"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// Agreement classes by reduced chi-squared. The thresholds are fixed.
const (
	AgreementGood     = "good agreement"
	AgreementMarginal = "marginal"
	AgreementPoor     = "poor"

	goodThreshold     = 1.5
	marginalThreshold = 3.0
)

// Record is the comparison at one reference angle.
type Record struct {
	Angle              float64
	ExperimentalAy     float64
	ExperimentalError  float64
	TheoreticalAy      float64 // interpolated
	AbsoluteDifference float64
	OutOfRange         bool // angle clamped to the table boundary
}

// Result holds the per-angle comparison and the fit statistics.
type Result struct {
	Records           []Record
	ChiSquared        float64
	ReducedChiSquared float64
	Points            int
	Agreement         string
	OutOfRange        int
}

// Classify maps a reduced chi-squared to an agreement class.
func Classify(reduced float64) string {
	switch {
	case reduced < goodThreshold:
		return AgreementGood
	case reduced < marginalThreshold:
		return AgreementMarginal
	default:
		return AgreementPoor
	}
}

// Interpolate evaluates the table at angle by piecewise-linear interpolation
// over the table sorted by angle. Angles outside the table clamp to the nearest
// end value and report outOfRange. An empty table, or one with repeated angles,
// gives (NaN, true).
func Interpolate(table analysis.AyTable, angle float64) (value float64, outOfRange bool) {
	ip, err := newInterpolator(table)
	if err != nil {
		return math.NaN(), true
	}
	return ip.at(angle)
}

// interpolator wraps gonum's piecewise-linear fit with flat extrapolation.
type interpolator struct {
	lo, hi analysis.AyPoint
	fit    *interp.PiecewiseLinear // nil for a single-point table
}

func newInterpolator(table analysis.AyTable) (*interpolator, error) {
	if len(table) == 0 {
		return nil, apperrors.NewValidationError("theoretical Ay table is empty")
	}
	pts := append(analysis.AyTable(nil), table...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Angle < pts[j].Angle })

	if err := pts.Validate(); err != nil {
		return nil, err
	}

	ip := &interpolator{lo: pts[0], hi: pts[len(pts)-1]}
	if len(pts) == 1 {
		return ip, nil
	}
	ip.fit = &interp.PiecewiseLinear{}
	if err := ip.fit.Fit(pts.Angles(), pts.Values()); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot interpolate Ay table: %v", err))
	}
	return ip, nil
}

func (ip *interpolator) at(angle float64) (float64, bool) {
	switch {
	case angle < ip.lo.Angle:
		return ip.lo.Ay, true
	case angle > ip.hi.Angle:
		return ip.hi.Ay, true
	case ip.fit == nil:
		return ip.lo.Ay, false
	default:
		return ip.fit.Predict(angle), false
	}
}

// Comparer scores theoretical Ay tables against reference data.
type Comparer struct {
	logger *slog.Logger
}

// NewComparer creates a comparer
func NewComparer(logger *slog.Logger) *Comparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparer{logger: logger}
}

// Compare interpolates table onto every reference angle and computes
// chi-squared with reduced chi-squared = chi-squared / N.
func (c *Comparer) Compare(table analysis.AyTable, ref *ReferenceDataset) (*Result, error) {
	if len(table) == 0 {
		return nil, apperrors.NewValidationError("theoretical Ay table is empty")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	ip, err := newInterpolator(table)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Records: make([]Record, 0, len(ref.Points)),
		Points:  len(ref.Points),
	}
	for _, p := range ref.Points {
		theo, outside := ip.at(p.Angle)
		if outside {
			result.OutOfRange++
			c.logger.Debug("Reference angle outside theoretical range, clamped",
				slog.Float64("angle_deg", p.Angle),
				slog.Float64("min_deg", ip.lo.Angle),
				slog.Float64("max_deg", ip.hi.Angle))
		}
		term := (p.Ay - theo) / p.Error
		result.ChiSquared += term * term
		result.Records = append(result.Records, Record{
			Angle:              p.Angle,
			ExperimentalAy:     p.Ay,
			ExperimentalError:  p.Error,
			TheoreticalAy:      theo,
			AbsoluteDifference: math.Abs(p.Ay - theo),
			OutOfRange:         outside,
		})
	}
	result.ReducedChiSquared = result.ChiSquared / float64(result.Points)
	result.Agreement = Classify(result.ReducedChiSquared)

	attrs := []any{
		slog.String("reference", ref.Name),
		slog.Int("points", result.Points),
		slog.Float64("chi2", result.ChiSquared),
		slog.Float64("reduced_chi2", result.ReducedChiSquared),
		slog.String("agreement", result.Agreement),
	}
	if result.OutOfRange > 0 {
		c.logger.Warn("Comparison used clamped theoretical values",
			append(attrs, slog.Int("out_of_range", result.OutOfRange))...)
	} else {
		c.logger.Info("Comparison complete", attrs...)
	}
	return result, nil
}

// Summary is a one-line description of the fit.
func (r *Result) Summary() string {
	return fmt.Sprintf("chi2 = %.3f, reduced chi2 = %.3f over %d points (%s)",
		r.ChiSquared, r.ReducedChiSquared, r.Points, r.Agreement)
}
