package channel

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

const plusChannel = `# JP=1/2+
1.000000e+02 6.666667e+01 10 1.0e+00+0.0e+00j 0.0e+00+1.0e+00j
1.500000e+02 1.000000e+02 11 5.0e-01+5.0e-01j 1.0e-01-1.0e-01j
`

const minusChannel = `# JP=1/2-
1.200000e+02 8.000000e+01 10 9.0e-01+1.0e-01j 2.0e-01+3.0e-01j
not-a-number 1.0 2 1.0e+00+1.0e+00j
`

func newTestStore(buf *bytes.Buffer) *Store {
	return NewStore(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestStoreLoadAndGet(t *testing.T) {
	var logs bytes.Buffer
	store := newTestStore(&logs)

	store.Load("JP=1/2+", plusChannel)
	store.Load("JP=1/2-", minusChannel)

	ds, ok := store.Get("JP=1/2+")
	require.True(t, ok)
	assert.Equal(t, "JP=1/2+", ds.Label)
	require.Len(t, ds.Records, 2)
	assert.InDelta(t, 150.0, ds.Records[1].LabEnergy, 1e-9)

	_, ok = store.Get("JP=3/2+")
	assert.False(t, ok)

	assert.Equal(t, []string{"JP=1/2+", "JP=1/2-"}, store.Labels())
	assert.Equal(t, 3, store.TotalRecords())

	diag, ok := store.Diagnostics("JP=1/2-")
	require.True(t, ok)
	assert.Equal(t, 1, diag.SkippedLines)
	assert.Equal(t, 2, diag.CandidateLines)
	assert.Contains(t, logs.String(), "Skipped unparseable data lines")
}

func TestStoreReloadReplacesWholesale(t *testing.T) {
	store := NewStore(nil)
	store.Load("A", plusChannel)
	store.Load("B", minusChannel)
	store.Load("A", minusChannel)

	ds, ok := store.Get("A")
	require.True(t, ok)
	require.Len(t, ds.Records, 1)
	assert.InDelta(t, 120.0, ds.Records[0].LabEnergy, 1e-9)
	// Position in the iteration order is kept.
	assert.Equal(t, []string{"A", "B"}, store.Labels())
}

func TestStoreLoadIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	store.Load("A", plusChannel)
	first, _ := store.Get("A")

	store.Load("A", plusChannel)
	second, _ := store.Get("A")

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A"}, store.Labels())
	assert.Equal(t, 2, store.TotalRecords())
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(nil)
	store.Load("A", plusChannel)

	ds, _ := store.Get("A")
	ds.Records[0].LabEnergy = -1
	ds.Records[0].Elements[0] = 42
	ds.Records = ds.Records[:0]

	again, _ := store.Get("A")
	require.Len(t, again.Records, 2)
	assert.InDelta(t, 100.0, again.Records[0].LabEnergy, 1e-9)
	assert.Equal(t, complex(1, 0), again.Records[0].Elements[0])

	all := store.Datasets()
	all[0].Records[1].Elements[1] = 7
	again, _ = store.Get("A")
	assert.Equal(t, complex(0.1, -0.1), again.Records[1].Elements[1])

	labels := store.Labels()
	labels[0] = "mutated"
	assert.Equal(t, []string{"A"}, store.Labels())
}

func TestStoreEmptyFileGivesPresentChannel(t *testing.T) {
	store := NewStore(nil)
	store.Load("empty", "# header only\n\n")

	ds, ok := store.Get("empty")
	require.True(t, ok)
	assert.Empty(t, ds.Records)
	assert.Equal(t, []string{"empty"}, store.Labels())
}

func TestStoreLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "U_JP_1_1_.txt")
	require.NoError(t, os.WriteFile(path, []byte(plusChannel), 0644))

	store := NewStore(nil)
	require.NoError(t, store.LoadFile("JP=1/2+", path))

	err := store.LoadFile("JP=1/2-", filepath.Join(dir, "U_JP_1_-1_.txt"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingFile))

	assert.Equal(t, []string{"JP=1/2+"}, store.Labels())
	_, ok := store.Get("JP=1/2-")
	assert.False(t, ok)
}
