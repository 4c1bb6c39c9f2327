package report

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/user/ay_analyzer_go/internal/analysis"
	"github.com/user/ay_analyzer_go/internal/channel"
	"github.com/user/ay_analyzer_go/internal/comparison"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/parser"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleData(t *testing.T, withComparison bool) ReportData {
	t.Helper()
	angles, err := analysis.AngleGrid(10, 170, 17)
	require.NoError(t, err)
	table := make(analysis.AyTable, len(angles))
	for i, a := range angles {
		table[i] = analysis.AyPoint{Angle: a, Ay: 0.1 * math.Sin(a*math.Pi/180)}
	}

	data := ReportData{
		RunID:       "run-123",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Potential:   "Nijmegen",
		Variant:     analysis.TwoElement,
		Sources:     []string{"Output/U_JP_1_1_.txt"},
		Selection: analysis.SelectionResult{
			Record: parser.MatrixElementRecord{
				LabEnergy: 135.6, CMEnergy: 90.4, MomentumIndex: 12,
				Elements: []complex128{complex(0.9, 0.1), complex(0.2, 0.3)},
			},
			ChannelLabel:     "JP=1/2+",
			TargetEnergy:     135.0,
			EnergyDifference: 0.6,
		},
		Table: table,
		Channels: []ChannelSummary{
			{Label: "JP=1/2+", Source: "a.txt", Records: 3, SkippedLines: 1, MinEnergy: 100, MaxEnergy: 200},
			{Label: "JP=1/2-", Source: "b.txt", MinEnergy: math.NaN(), MaxEnergy: math.NaN()},
		},
	}
	if withComparison {
		ref := comparison.SimulatedDeuteronProton190()
		res, err := comparison.NewComparer(nil).Compare(table, ref)
		require.NoError(t, err)
		data.Reference = ref
		data.Comparison = res
	}
	return data
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "Ay_theoretical_results_136MeV.txt", AyReportFileName(135.6))
	assert.Equal(t, "Ay_vs_angle_Tlab_190MeV.png", AyPlotFileName(190))
}

func TestSummarizeChannel(t *testing.T) {
	ds := &channel.Dataset{Label: "A", Records: []parser.MatrixElementRecord{
		{LabEnergy: 150}, {LabEnergy: 100}, {LabEnergy: 175},
	}}
	s := SummarizeChannel(ds, "a.txt", channel.Diagnostics{SkippedLines: 2})
	assert.Equal(t, 3, s.Records)
	assert.Equal(t, 2, s.SkippedLines)
	assert.Equal(t, 100.0, s.MinEnergy)
	assert.Equal(t, 175.0, s.MaxEnergy)

	empty := SummarizeChannel(&channel.Dataset{Label: "B"}, "b.txt", channel.Diagnostics{})
	assert.True(t, math.IsNaN(empty.MinEnergy))
}

func TestWriteAyReport(t *testing.T) {
	data := sampleData(t, false)
	var buf bytes.Buffer
	require.NoError(t, WriteAyReport(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "# Run: run-123")
	assert.Contains(t, out, "# Potential: Nijmegen")
	assert.Contains(t, out, "# Channel: JP=1/2+")
	assert.Contains(t, out, "# Tlab = 135.60 MeV (target 135.00 MeV, difference 0.60 MeV)")
	assert.Contains(t, out, "# Ecm = 90.40 MeV")
	assert.Contains(t, out, "# Formula: two-element")
	assert.Contains(t, out, "# Source: Output/U_JP_1_1_.txt")
	assert.Contains(t, out, "\n   10.00      0.017365\n")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "  170.00      0.017365", lines[len(lines)-1])
}

func TestWriteAyReportRejectsEmptyTable(t *testing.T) {
	data := sampleData(t, false)
	data.Table = nil
	err := WriteAyReport(io.Discard, data)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestReadAyTableRoundTrip(t *testing.T) {
	data := sampleData(t, false)
	var buf bytes.Buffer
	require.NoError(t, WriteAyReport(&buf, data))

	table, err := ReadAyTable(&buf)
	require.NoError(t, err)
	require.Len(t, table, len(data.Table))
	for i := range table {
		assert.InDelta(t, data.Table[i].Angle, table[i].Angle, 1e-9)
		assert.InDelta(t, data.Table[i].Ay, table[i].Ay, 5e-7)
	}
}

func TestReadAyTableErrors(t *testing.T) {
	_, err := ReadAyTable(strings.NewReader("# nothing\n"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = ReadAyTable(strings.NewReader("10.0\n"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	_, err = ReadAyTable(strings.NewReader("10.0 x\n"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	_, err = ReadAyTable(strings.NewReader("20 0.1\n10 0.2\n"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestWriteComparisonReport(t *testing.T) {
	data := sampleData(t, true)
	var buf bytes.Buffer
	require.NoError(t, WriteComparisonReport(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "#   Energy: 190 MeV/u")
	assert.Contains(t, out, "#   Note: simulated data - replace with real experimental data")
	assert.Contains(t, out, "#   Points: 15")
	assert.Contains(t, out, "#   Angle range: 20.0 - 160.0 deg")
	assert.Contains(t, out, "#   Agreement: "+data.Comparison.Agreement)
	assert.Contains(t, out, "# angle   expAy   error   theoAy   diff")

	r := data.Comparison.Records[0]
	assert.Contains(t, out, "  20.0     0.020   0.010")
	assert.InDelta(t, 0.1*math.Sin(20*math.Pi/180), r.TheoreticalAy, 1e-3)

	rows := 0
	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			rows++
		}
	}
	assert.Equal(t, 15, rows)
}

func TestWriteComparisonReportWithoutComparison(t *testing.T) {
	err := WriteComparisonReport(io.Discard, sampleData(t, false))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteBytesAtomic(path, []byte("first")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	failure := errors.New("boom")
	err = WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return failure
	})
	require.ErrorIs(t, err, failure)

	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestCreateAyPlot(t *testing.T) {
	img, err := CreateAyPlot(sampleData(t, false).Table, "Ay at 135.6 MeV")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = CreateAyPlot(nil, "empty")
	assert.Error(t, err)
}

func TestCreateComparisonPlot(t *testing.T) {
	data := sampleData(t, true)
	img, err := CreateComparisonPlot(data.Table, data.Reference, data.Comparison)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = CreateComparisonPlot(data.Table, &comparison.ReferenceDataset{}, nil)
	assert.Error(t, err)
}

func TestCreateElementHeatmap(t *testing.T) {
	ds := &channel.Dataset{Label: "JP=1/2+", Records: []parser.MatrixElementRecord{
		{LabEnergy: 100, Elements: []complex128{1, 1i, 0.5, 0.25}},
		{LabEnergy: 150, Elements: []complex128{0.9}},
		{LabEnergy: 200, Elements: []complex128{0.8, 0.1i}},
	}}
	grid := newElementGrid(ds)
	c, r := grid.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 3, r)
	assert.InDelta(t, 1.0, grid.Z(1, 0), 1e-12)
	assert.True(t, math.IsNaN(grid.Z(3, 1)))

	img, err := CreateElementHeatmap(ds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = CreateElementHeatmap(&channel.Dataset{Label: "empty"})
	assert.Error(t, err)
	_, err = CreateElementHeatmap(&channel.Dataset{Label: "bare", Records: []parser.MatrixElementRecord{{LabEnergy: 1}}})
	assert.Error(t, err)
}

func TestCreateElementHeatmapSkipsInfiniteElements(t *testing.T) {
	parsed := parser.ParseUMatrix("1.356e+02 9.0e+01 1 1.0e+400+0.0e+00j\n")
	require.Len(t, parsed.Records, 1)
	require.True(t, math.IsInf(real(parsed.Records[0].Elements[0]), 1))

	allInf := &channel.Dataset{Label: "overflow", Records: parsed.Records}
	assert.True(t, math.IsNaN(newElementGrid(allInf).Z(0, 0)))

	var img []byte
	var err error
	assert.NotPanics(t, func() { img, err = CreateElementHeatmap(allInf) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no finite matrix elements")
	assert.Nil(t, img)

	mixed := &channel.Dataset{Label: "mixed", Records: append(parsed.Records,
		parser.MatrixElementRecord{LabEnergy: 140, Elements: []complex128{0.5}})}
	img, err = CreateElementHeatmap(mixed)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestBuildPDFReport(t *testing.T) {
	data := sampleData(t, true)
	ayImg, err := CreateAyPlot(data.Table, "Ay")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, BuildPDFReport(&buf, data, map[string][]byte{ImageAyPlot: ayImg}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, BuildPDFReport(&buf, sampleData(t, false), nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteWorkbook(t *testing.T) {
	data := sampleData(t, true)
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetAy, sheetComparison, sheetChannels, sheetRun}, f.GetSheetList())

	rows, err := f.GetRows(sheetAy)
	require.NoError(t, err)
	require.Len(t, rows, len(data.Table)+1)
	assert.Equal(t, []string{"Angle (deg)", "Ay"}, rows[0])
	assert.Equal(t, "10", rows[1][0])

	rows, err = f.GetRows(sheetComparison)
	require.NoError(t, err)
	assert.Equal(t, "Agreement", rows[3][7])
	assert.Equal(t, data.Comparison.Agreement, rows[3][8])

	rows, err = f.GetRows(sheetChannels)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "JP=1/2-", rows[2][0])
}

func TestWriteWorkbookWithoutComparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleData(t, false)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), sheetComparison)
}
