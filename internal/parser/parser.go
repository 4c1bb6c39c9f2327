package parser

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// CommentMarker starts a line that is never data.
const CommentMarker = "#"

// leadTriple splits off the first three whitespace-separated fields of line and
// returns them with the remainder of the line.
func leadTriple(line string) ([3]string, string, bool) {
	var fields [3]string
	rest := line
	for i := 0; i < 3; i++ {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return fields, "", false
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		fields[i] = rest[:end]
		rest = rest[end:]
	}
	return fields, rest, true
}

// parseDataLine converts one candidate line into a record.
func parseDataLine(line string) (MatrixElementRecord, error) {
	fields, rest, ok := leadTriple(line)
	if !ok {
		return MatrixElementRecord{}, fmt.Errorf("fewer than 3 leading fields")
	}

	tlab, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return MatrixElementRecord{}, fmt.Errorf("invalid lab energy %q: %w", fields[0], err)
	}
	ecm, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return MatrixElementRecord{}, fmt.Errorf("invalid cm energy %q: %w", fields[1], err)
	}
	qIdx, err := strconv.Atoi(fields[2])
	if err != nil {
		return MatrixElementRecord{}, fmt.Errorf("invalid momentum index %q: %w", fields[2], err)
	}

	return MatrixElementRecord{
		LabEnergy:     tlab,
		CMEnergy:      ecm,
		MomentumIndex: qIdx,
		Elements:      ScanComplex(rest),
	}, nil
}

// ParseUMatrix extracts the records of a U-matrix file. Lines are considered
// only if they are not blank, not comments and contain an imaginary unit after a
// digit. A candidate whose lead triple fails to parse is skipped and counted;
// records keep file order.
func ParseUMatrix(content string) *ParsedUMatrix {
	parsed := NewParsedUMatrix()

	for lineIdx, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, CommentMarker) {
			continue
		}
		if !hasImaginaryMarker(line) {
			continue
		}
		parsed.CandidateLines++

		rec, err := parseDataLine(line)
		if err != nil {
			parsed.SkippedLines++
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("line %d skipped: %v", lineIdx+1, err))
			continue
		}
		parsed.Records = append(parsed.Records, rec)
	}

	return parsed
}

// ParseUMatrixFile reads and parses the file at path. A nonexistent file is
// reported as a MISSING_FILE error so callers can treat it as a warning.
func ParseUMatrixFile(path string) (*ParsedUMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingFileError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read %s", path), err)
	}
	return ParseUMatrix(string(data)), nil
}
