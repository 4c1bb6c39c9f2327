package analysis

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/user/ay_analyzer_go/internal/channel"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// Selector finds the energy point closest to a target lab energy.
type Selector struct {
	logger *slog.Logger
}

// NewSelector creates a selector that reports its decisions to logger.
func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{logger: logger}
}

// Select scans datasets in the given order, and each dataset's records in file
// order, keeping the record with the smallest |LabEnergy - target|. On a tie the
// first record seen wins. With no records at all an EMPTY_DATASET error is
// returned.
func (s *Selector) Select(target float64, datasets []*channel.Dataset) (SelectionResult, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return SelectionResult{}, apperrors.NewValidationError("target lab energy must be finite")
	}

	var best SelectionResult
	found := false
	emptyChannels := 0

	for _, ds := range datasets {
		if len(ds.Records) == 0 {
			emptyChannels++
			continue
		}
		for _, rec := range ds.Records {
			diff := math.Abs(rec.LabEnergy - target)
			if math.IsNaN(diff) {
				continue
			}
			if !found || diff < best.EnergyDifference {
				best = SelectionResult{
					Record:           rec.Clone(),
					ChannelLabel:     ds.Label,
					TargetEnergy:     target,
					EnergyDifference: diff,
				}
				found = true
			}
		}
	}

	if !found {
		if len(datasets) == 0 {
			return SelectionResult{}, apperrors.NewEmptyDatasetError("no channels loaded").
				WithContext("channels", 0)
		}
		return SelectionResult{}, apperrors.NewEmptyDatasetError(
			fmt.Sprintf("%d channel(s) loaded but none holds a record", len(datasets))).
			WithContext("channels", len(datasets)).
			WithContext("empty_channels", emptyChannels)
	}

	s.logger.Info("Selected energy point",
		slog.String("channel", best.ChannelLabel),
		slog.Float64("tlab_mev", best.Record.LabEnergy),
		slog.Float64("ecm_mev", best.Record.CMEnergy),
		slog.Float64("target_mev", target),
		slog.Float64("difference_mev", best.EnergyDifference),
		slog.Int("elements", len(best.Record.Elements)))

	return best, nil
}
