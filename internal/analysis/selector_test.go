package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/ay_analyzer_go/internal/channel"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/parser"
)

func dataset(label string, energies ...float64) *channel.Dataset {
	ds := &channel.Dataset{Label: label, Records: []parser.MatrixElementRecord{}}
	for i, e := range energies {
		ds.Records = append(ds.Records, parser.MatrixElementRecord{
			LabEnergy:     e,
			CMEnergy:      e * 2 / 3,
			MomentumIndex: i,
			Elements:      []complex128{complex(e, 0)},
		})
	}
	return ds
}

func TestSelectNearestAcrossChannels(t *testing.T) {
	sel := NewSelector(nil)

	res, err := sel.Select(130, []*channel.Dataset{
		dataset("A", 100, 150),
		dataset("B", 120, 200),
	})
	require.NoError(t, err)
	assert.Equal(t, "B", res.ChannelLabel)
	assert.InDelta(t, 120.0, res.Record.LabEnergy, 1e-12)
	assert.InDelta(t, 10.0, res.EnergyDifference, 1e-12)
	assert.InDelta(t, 130.0, res.TargetEnergy, 1e-12)
}

func TestSelectTieKeepsFirstSeen(t *testing.T) {
	sel := NewSelector(nil)

	res, err := sel.Select(125, []*channel.Dataset{
		dataset("A", 100, 150),
		dataset("B", 120, 130),
	})
	require.NoError(t, err)
	assert.Equal(t, "B", res.ChannelLabel)
	assert.InDelta(t, 120.0, res.Record.LabEnergy, 1e-12)

	res, err = sel.Select(125, []*channel.Dataset{
		dataset("A", 130),
		dataset("B", 120),
	})
	require.NoError(t, err)
	assert.Equal(t, "A", res.ChannelLabel)
}

func TestSelectExactMatch(t *testing.T) {
	res, err := NewSelector(nil).Select(135.6, []*channel.Dataset{dataset("A", 100, 135.6, 150)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.EnergyDifference)
	assert.Equal(t, 1, res.Record.MomentumIndex)
}

func TestSelectSkipsEmptyChannels(t *testing.T) {
	res, err := NewSelector(nil).Select(90, []*channel.Dataset{dataset("empty"), dataset("B", 80)})
	require.NoError(t, err)
	assert.Equal(t, "B", res.ChannelLabel)
}

func TestSelectEmptyDataset(t *testing.T) {
	sel := NewSelector(nil)

	_, err := sel.Select(130, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyDataset))

	_, err = sel.Select(130, []*channel.Dataset{dataset("A"), dataset("B")})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyDataset))
	assert.Contains(t, err.Error(), "2 channel(s)")
}

func TestSelectRejectsNonFiniteTarget(t *testing.T) {
	_, err := NewSelector(nil).Select(math.NaN(), []*channel.Dataset{dataset("A", 100)})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestSelectReturnsIndependentRecord(t *testing.T) {
	ds := dataset("A", 100)
	res, err := NewSelector(nil).Select(100, []*channel.Dataset{ds})
	require.NoError(t, err)

	res.Record.Elements[0] = 0
	assert.Equal(t, complex(100, 0), ds.Records[0].Elements[0])
}
