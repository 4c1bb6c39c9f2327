package analysis

import (
	"fmt"
	"log/slog"
	"math/cmplx"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/parser"
)

// Variant selects one of the two simplified Ay approximations. The two are not
// derived from a common theory and may disagree on the same input; neither is
// chosen automatically.
type Variant int

const (
	// FourElement uses (U00, U01, U10, U11):
	// Ay = Im(conj(U00+U11) * (U01+U10)) / |U00+U11|^2.
	FourElement Variant = iota + 1
	// TwoElement uses (U00, U01):
	// Ay = Im(conj(U00) * U01) / (|U00|^2 + |U01|^2).
	TwoElement
)

const (
	fourElementThreshold = 1e-15
	twoElementThreshold  = 1e-12
)

// String returns the configuration name of the variant.
func (v Variant) String() string {
	switch v {
	case FourElement:
		return "four-element"
	case TwoElement:
		return "two-element"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// RequiredElements is the minimum element count the variant reads.
func (v Variant) RequiredElements() int {
	switch v {
	case FourElement:
		return 4
	case TwoElement:
		return 2
	default:
		return 0
	}
}

// ParseVariant maps "four-element" or "two-element" to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "four-element":
		return FourElement, nil
	case "two-element":
		return TwoElement, nil
	default:
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown Ay formula variant %q", name))
	}
}

// Engine evaluates Ay for one formula variant.
type Engine struct {
	variant Variant
	logger  *slog.Logger
}

// NewEngine creates an engine for variant.
func NewEngine(variant Variant, logger *slog.Logger) (*Engine, error) {
	if variant.RequiredElements() == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported Ay formula variant %s", variant))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{variant: variant, logger: logger}, nil
}

// Variant returns the engine's formula variant.
func (e *Engine) Variant() Variant { return e.variant }

// AnalyzingPower returns Ay for the given elements. The angle is accepted for
// interface uniformity but neither formula depends on it. Too few elements, or a
// denominator at or below the variant's threshold, yields 0.
func (e *Engine) AnalyzingPower(elements []complex128, angleDeg float64) float64 {
	if len(elements) < e.variant.RequiredElements() {
		e.logger.Debug("Too few matrix elements for Ay formula, using 0",
			slog.String("variant", e.variant.String()),
			slog.Int("elements", len(elements)),
			slog.Float64("angle_deg", angleDeg))
		return 0.0
	}

	switch e.variant {
	case FourElement:
		return fourElementAy(elements[0], elements[1], elements[2], elements[3])
	case TwoElement:
		return twoElementAy(elements[0], elements[1])
	}
	return 0.0
}

func fourElementAy(u00, u01, u10, u11 complex128) float64 {
	noFlip := u00 + u11
	flip := u01 + u10
	denominator := absSquared(noFlip)
	if denominator <= fourElementThreshold {
		return 0.0
	}
	return imag(cmplx.Conj(noFlip)*flip) / denominator
}

func twoElementAy(u00, u01 complex128) float64 {
	crossTerm := cmplx.Conj(u00) * u01
	total := absSquared(u00) + absSquared(u01)
	if total <= twoElementThreshold {
		return 0.0
	}
	return imag(crossTerm) / total
}

func absSquared(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// Table evaluates Ay at every angle for one record. Since the formulas ignore
// the angle, all rows carry the same value.
func (e *Engine) Table(record parser.MatrixElementRecord, angles []float64) (AyTable, error) {
	if err := validateAngles(angles); err != nil {
		return nil, err
	}

	table := make(AyTable, len(angles))
	for i, angle := range angles {
		table[i] = AyPoint{Angle: angle, Ay: e.AnalyzingPower(record.Elements, angle)}
	}

	e.logger.Info("Computed Ay table",
		slog.String("variant", e.variant.String()),
		slog.Float64("tlab_mev", record.LabEnergy),
		slog.Int("angles", len(angles)),
		slog.Float64("ay", table[0].Ay))
	return table, nil
}
