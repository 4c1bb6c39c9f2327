package analysis

import (
	"fmt"
	"math"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/parser"
)

// SelectionResult is the record chosen for a target lab energy.
type SelectionResult struct {
	Record           parser.MatrixElementRecord
	ChannelLabel     string
	TargetEnergy     float64
	EnergyDifference float64 // |Record.LabEnergy - TargetEnergy|, >= 0
}

// AyPoint is one row of an analyzing-power table.
type AyPoint struct {
	Angle float64 // Scattering angle, degrees
	Ay    float64
}

// AyTable holds Ay values with strictly increasing angles.
type AyTable []AyPoint

// Angles returns the table's angles.
func (t AyTable) Angles() []float64 {
	out := make([]float64, len(t))
	for i, p := range t {
		out[i] = p.Angle
	}
	return out
}

// Values returns the table's Ay values.
func (t AyTable) Values() []float64 {
	out := make([]float64, len(t))
	for i, p := range t {
		out[i] = p.Ay
	}
	return out
}

// Validate checks that the table is non-empty, finite and strictly increasing in angle.
func (t AyTable) Validate() error {
	if len(t) == 0 {
		return apperrors.NewValidationError("Ay table is empty")
	}
	return validateAngles(t.Angles())
}

func validateAngles(angles []float64) error {
	if len(angles) == 0 {
		return apperrors.NewValidationError("no angles given")
	}
	for i, a := range angles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return apperrors.NewValidationError(fmt.Sprintf("angle %d is not finite", i)).WithContext("index", i)
		}
		if i > 0 && a <= angles[i-1] {
			return apperrors.NewValidationError(fmt.Sprintf("angles must be strictly increasing: %.4f follows %.4f", a, angles[i-1])).
				WithContext("index", i)
		}
	}
	return nil
}
