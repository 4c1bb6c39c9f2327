package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

const sampleUMatrix = `# U-matrix elements, JP=1/2+
# Tlab(MeV)  Ecm(MeV)  q_idx  U00 U01 U10 U11

1.356000e+02 9.040000e+01 12 9.1e-01+1.2e-01j -3.0e-02+4.0e-02j 5.0e-03-6.0e-03j 8.8e-01-1.1e-01j
   1.000000e+02  6.666667e+01  10   1.0e+00+0.0e+00j  0.0e+00+1.0e+00j
bad 4.0e+01 3 1.0e+00+1.0e+00j
2.000000e+02 1.333333e+02 15
1.500000e+02 1.000000e+02 x 1.0e+00+1.0e+00j
1.600000e+02 1.066667e+02 16 no complex numbers here but j7j
`

func TestParseUMatrix(t *testing.T) {
	parsed := ParseUMatrix(sampleUMatrix)

	require.Len(t, parsed.Records, 3)
	assert.Equal(t, 5, parsed.CandidateLines)
	assert.Equal(t, 2, parsed.SkippedLines)
	require.Len(t, parsed.ParseErrors, 2)
	assert.Contains(t, parsed.ParseErrors[0], "line 6")
	assert.Contains(t, parsed.ParseErrors[0], "lab energy")
	assert.Contains(t, parsed.ParseErrors[1], "momentum index")

	first := parsed.Records[0]
	assert.InDelta(t, 135.6, first.LabEnergy, 1e-9)
	assert.InDelta(t, 90.4, first.CMEnergy, 1e-9)
	assert.Equal(t, 12, first.MomentumIndex)
	assert.Equal(t, []complex128{
		complex(0.91, 0.12),
		complex(-0.03, 0.04),
		complex(0.005, -0.006),
		complex(0.88, -0.11),
	}, first.Elements)

	// File order is kept, not energy order.
	assert.InDelta(t, 100.0, parsed.Records[1].LabEnergy, 1e-9)
	assert.Equal(t, []complex128{complex(1, 0), complex(0, 1)}, parsed.Records[1].Elements)

	// A parsed lead triple with no complex tokens still yields a record.
	last := parsed.Records[2]
	assert.InDelta(t, 160.0, last.LabEnergy, 1e-9)
	assert.NotNil(t, last.Elements)
	assert.Empty(t, last.Elements)
}

func TestParseUMatrixLineWithoutImaginaryIsIgnored(t *testing.T) {
	// The 200 MeV line has no imaginary marker, so it is not even a candidate.
	parsed := ParseUMatrix("2.000000e+02 1.333333e+02 15\n")
	assert.Empty(t, parsed.Records)
	assert.Equal(t, 0, parsed.CandidateLines)
	assert.Equal(t, 0, parsed.SkippedLines)
}

func TestParseUMatrixFewerThanThreeFields(t *testing.T) {
	parsed := ParseUMatrix("1.0e+00+1.0e+00j\n1.0 2.0e+00-1.0e+00j\n")
	assert.Empty(t, parsed.Records)
	assert.Equal(t, 2, parsed.SkippedLines)
	assert.Contains(t, parsed.ParseErrors[0], "fewer than 3")
}

func TestParseUMatrixWindowsLineEndings(t *testing.T) {
	parsed := ParseUMatrix("# header\r\n1.0e+02 5.0e+01 1 1.0e+00-2.0e+00j\r\n")
	require.Len(t, parsed.Records, 1)
	assert.Equal(t, []complex128{complex(1, -2)}, parsed.Records[0].Elements)
}

func TestParseUMatrixEmptyContent(t *testing.T) {
	parsed := ParseUMatrix("# only comments\n\n# nothing else\n")
	assert.NotNil(t, parsed.Records)
	assert.Empty(t, parsed.Records)
	assert.Equal(t, 0, parsed.SkippedLines)
}

// A line with N rendered tokens yields exactly N elements, in order.
func TestParseUMatrixElementCountMatchesTokens(t *testing.T) {
	values := []complex128{complex(1, -1), complex(-2.5, 3e-7), complex(0, 0), complex(4e10, -4e-10), complex(-1, 1), complex(7, 7)}
	for n := 0; n <= len(values); n++ {
		tokens := make([]string, n)
		for i := 0; i < n; i++ {
			tokens[i] = FormatComplex(values[i])
		}
		line := "1.2e+02 8.0e+01 3 " + strings.Join(tokens, " ") + " 0j"
		parsed := ParseUMatrix(line)
		require.Len(t, parsed.Records, 1, "n=%d", n)
		assert.Equal(t, values[:n], parsed.Records[0].Elements[:n])
		assert.Len(t, parsed.Records[0].Elements, n)
	}
}

func TestParseUMatrixFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "U_PW_elements_JP_1_1_.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleUMatrix), 0644))

	parsed, err := ParseUMatrixFile(path)
	require.NoError(t, err)
	assert.Len(t, parsed.Records, 3)

	_, err = ParseUMatrixFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingFile))

	_, err = ParseUMatrixFile(dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestRecordClone(t *testing.T) {
	rec := MatrixElementRecord{LabEnergy: 1, Elements: []complex128{1, 2}}
	clone := rec.Clone()
	clone.Elements[0] = 99
	assert.Equal(t, complex128(1), rec.Elements[0])

	empty := MatrixElementRecord{}.Clone()
	assert.Nil(t, empty.Elements)
}

func TestLabelFor(t *testing.T) {
	table := DefaultLabelTable()
	tests := []struct {
		path  string
		label string
		ok    bool
	}{
		{"Output/U_PW_elements_Np_30_Nq_30_JP_1_1_Jmax_1_PSI_0.txt", "JP=1/2+", true},
		{"Output/U_PW_elements_Np_30_Nq_30_JP_1_-1_Jmax_1_PSI_0.txt", "JP=1/2-", true},
		{"JP_1_1_dir/U_PW_elements_JP_3_1_.txt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			label, ok := table.LabelFor(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
		})
	}

	custom := LabelTable{{Match: "", Label: "never"}, {Match: "PSI", Label: "psi"}}
	label, ok := custom.LabelFor("x_PSI_0.txt")
	assert.True(t, ok)
	assert.Equal(t, "psi", label)
}
