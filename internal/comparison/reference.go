package comparison

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// ReferencePoint is one measured Ay value.
type ReferencePoint struct {
	Angle float64 // degrees
	Ay    float64
	Error float64 // one-sigma uncertainty, > 0
}

// ReferenceDataset is a set of measured (or placeholder) Ay points.
type ReferenceDataset struct {
	Name      string
	Energy    string // free-form beam energy, e.g. "190 MeV/u"
	Note      string
	Simulated bool
	Points    []ReferencePoint
}

// Validate checks that the dataset has points, finite values and positive errors.
func (d *ReferenceDataset) Validate() error {
	if d == nil || len(d.Points) == 0 {
		return apperrors.NewValidationError("reference dataset is empty")
	}
	for i, p := range d.Points {
		if !finite(p.Angle) || !finite(p.Ay) || !finite(p.Error) {
			return apperrors.NewValidationError(fmt.Sprintf("reference point %d is not finite", i)).
				WithContext("index", i)
		}
		if p.Error <= 0 {
			return apperrors.NewValidationError(
				fmt.Sprintf("reference point %d at %.2f deg has non-positive error %g", i, p.Angle, p.Error)).
				WithContext("index", i).
				WithContext("angle", p.Angle)
		}
	}
	return nil
}

// ParseReference reads whitespace separated "angle Ay error" rows. Blank lines
// and lines starting with # are ignored. Any other malformed line is a parsing
// error.
func ParseReference(r io.Reader) ([]ReferencePoint, error) {
	points := make([]ReferencePoint, 0)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("line %d: expected 3 columns (angle Ay error), got %d", lineNo, len(fields)), nil).
				WithContext("line", lineNo)
		}

		var values [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: column %d", lineNo, i+1), err).
					WithContext("line", lineNo)
			}
			values[i] = v
		}
		points = append(points, ReferencePoint{Angle: values[0], Ay: values[1], Error: values[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read reference data", err)
	}
	return points, nil
}

// LoadReferenceFile parses a reference file into a dataset named after the file.
func LoadReferenceFile(path string) (*ReferenceDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingFileError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open reference file %s", path), err)
	}
	defer f.Close()

	points, err := ParseReference(f)
	if err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	ds := &ReferenceDataset{Name: path, Points: points}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}
	return ds, nil
}

var (
	simulatedAngles = []float64{20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150, 160}
	simulatedAy     = []float64{0.02, 0.04, 0.08, 0.12, 0.15, 0.16, 0.14, 0.10, 0.05, 0.00, -0.05, -0.08, -0.06, -0.02, 0.01}
	simulatedErrors = []float64{0.01, 0.01, 0.015, 0.02, 0.02, 0.025, 0.02, 0.015, 0.02, 0.025, 0.02, 0.025, 0.02, 0.015, 0.015}
)

// SimulatedDeuteronProton190 returns the placeholder d+p Ay curve at 190 MeV/u.
// It is not a measurement and is flagged as simulated.
func SimulatedDeuteronProton190() *ReferenceDataset {
	points := make([]ReferencePoint, len(simulatedAngles))
	for i := range simulatedAngles {
		points[i] = ReferencePoint{Angle: simulatedAngles[i], Ay: simulatedAy[i], Error: simulatedErrors[i]}
	}
	return &ReferenceDataset{
		Name:      "simulated d+p elastic",
		Energy:    "190 MeV/u",
		Note:      "simulated data - replace with real experimental data",
		Simulated: true,
		Points:    points,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
