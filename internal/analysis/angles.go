package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// AngleGrid returns count evenly spaced angles from start to stop inclusive.
// A count of 1 yields just start.
func AngleGrid(start, stop float64, count int) ([]float64, error) {
	if count < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("angle count must be positive, got %d", count))
	}
	if count == 1 {
		return []float64{start}, nil
	}
	if stop <= start {
		return nil, apperrors.NewValidationError(fmt.Sprintf("angle stop %.4f must exceed start %.4f", stop, start))
	}

	angles := floats.Span(make([]float64, count), start, stop)
	angles[count-1] = stop
	return angles, nil
}

// ResolveAngles returns values when given, otherwise the grid described by
// start, stop and count. The result is validated either way.
func ResolveAngles(values []float64, start, stop float64, count int) ([]float64, error) {
	var angles []float64
	if len(values) > 0 {
		angles = append([]float64(nil), values...)
	} else {
		grid, err := AngleGrid(start, stop, count)
		if err != nil {
			return nil, err
		}
		angles = grid
	}
	if err := validateAngles(angles); err != nil {
		return nil, err
	}
	return angles, nil
}
