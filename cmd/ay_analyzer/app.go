package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/ay_analyzer_go/internal/analysis"
	"github.com/user/ay_analyzer_go/internal/channel"
	"github.com/user/ay_analyzer_go/internal/comparison"
	"github.com/user/ay_analyzer_go/internal/config"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/infrastructure"
	"github.com/user/ay_analyzer_go/internal/parser"
	"github.com/user/ay_analyzer_go/internal/report"
)

// App runs the analysis pipeline for one configuration.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewApp creates an App. cfg is copied; the App never reads global state.
func NewApp(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger, now: time.Now}
}

// RunResult summarises a completed run.
type RunResult struct {
	RunID      string
	Selection  analysis.SelectionResult
	Table      analysis.AyTable
	Comparison *comparison.Result
	Files      []string // written artifacts
}

// Analyze loads every configured channel file, selects the energy point nearest
// the target, computes Ay and writes the configured outputs. Missing input files
// are logged and skipped; if no records are left an EMPTY_DATASET error is
// returned and nothing is written.
func (a *App) Analyze(ctx context.Context) (*RunResult, error) {
	runID := a.runID(ctx)
	ctx = infrastructure.WithRunID(ctx, runID)
	compLogger := a.logger.With(slog.String("run_id", runID))

	a.logger.InfoContext(ctx, "Starting Ay analysis",
		slog.Float64("target_tlab_mev", a.cfg.Selection.TargetLabEnergy),
		slog.String("variant", a.cfg.Analysis.Variant),
		slog.Int("input_files", len(a.cfg.Input.Files)))

	variant, err := analysis.ParseVariant(a.cfg.Analysis.Variant)
	if err != nil {
		return nil, err
	}
	engine, err := analysis.NewEngine(variant, compLogger)
	if err != nil {
		return nil, err
	}
	ang := a.cfg.Analysis.Angles
	angles, err := analysis.ResolveAngles(ang.Values, ang.Start, ang.Stop, ang.Count)
	if err != nil {
		return nil, err
	}
	ref, err := a.loadReference(ctx)
	if err != nil {
		return nil, err
	}

	store := channel.NewStore(compLogger)
	sources, err := a.loadChannels(ctx, store)
	if err != nil {
		return nil, err
	}

	sel, err := analysis.NewSelector(compLogger).Select(a.cfg.Selection.TargetLabEnergy, store.Datasets())
	if err != nil {
		a.logger.ErrorContext(ctx, "No usable energy point, no output written", slog.String("error", err.Error()))
		return nil, err
	}

	table, err := engine.Table(sel.Record, angles)
	if err != nil {
		return nil, err
	}

	data := report.ReportData{
		RunID:       runID,
		GeneratedAt: a.now(),
		Potential:   a.cfg.Output.Potential,
		Variant:     engine.Variant(),
		Sources:     make([]string, 0, len(sources)),
		Selection:   sel,
		Table:       table,
	}
	for _, ds := range store.Datasets() {
		diag, _ := store.Diagnostics(ds.Label)
		data.Channels = append(data.Channels, report.SummarizeChannel(ds, sources[ds.Label], diag))
		data.Sources = append(data.Sources, sources[ds.Label])
	}

	if ref != nil {
		res, err := comparison.NewComparer(compLogger).Compare(table, ref)
		if err != nil {
			return nil, err
		}
		data.Reference, data.Comparison = ref, res
	}

	files, err := a.writeOutputs(ctx, data, store.Datasets())
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "Ay analysis complete",
		slog.String("channel", sel.ChannelLabel),
		slog.Float64("tlab_mev", sel.Record.LabEnergy),
		slog.Int("artifacts", len(files)))

	return &RunResult{
		RunID:      runID,
		Selection:  sel,
		Table:      table,
		Comparison: data.Comparison,
		Files:      files,
	}, nil
}

// Compare scores an existing Ay report against the configured reference and
// writes the comparison report and plot.
func (a *App) Compare(ctx context.Context, theoryPath string) (*RunResult, error) {
	runID := a.runID(ctx)
	ctx = infrastructure.WithRunID(ctx, runID)

	ref, err := a.loadReference(ctx)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, apperrors.NewConfigError("no reference data configured: set comparison.reference_file or comparison.use_simulated_reference", nil)
	}

	table, err := readTheoryFile(theoryPath)
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "Loaded theoretical Ay table",
		slog.String("path", theoryPath),
		slog.Int("points", len(table)))

	res, err := comparison.NewComparer(a.logger.With(slog.String("run_id", runID))).Compare(table, ref)
	if err != nil {
		return nil, err
	}

	data := report.ReportData{
		RunID:       runID,
		GeneratedAt: a.now(),
		Potential:   a.cfg.Output.Potential,
		Sources:     []string{theoryPath},
		Table:       table,
		Reference:   ref,
		Comparison:  res,
	}
	files, err := a.writeComparisonOutputs(ctx, data)
	if err != nil {
		return nil, err
	}
	return &RunResult{RunID: runID, Table: table, Comparison: res, Files: files}, nil
}

func (a *App) runID(ctx context.Context) string {
	if id := infrastructure.RunID(ctx); id != "" {
		return id
	}
	return infrastructure.NewRunID()
}

func (a *App) labelTable() parser.LabelTable {
	table := make(parser.LabelTable, 0, len(a.cfg.Input.ChannelLabels))
	for _, r := range a.cfg.Input.ChannelLabels {
		table = append(table, parser.LabelRule{Match: r.Match, Label: r.Label})
	}
	if len(table) == 0 {
		return parser.DefaultLabelTable()
	}
	return table
}

// loadChannels loads each configured file and returns the source path per label.
func (a *App) loadChannels(ctx context.Context, store *channel.Store) (map[string]string, error) {
	labels := a.labelTable()
	sources := make(map[string]string)

	for _, name := range a.cfg.Input.Files {
		path := name
		if !filepath.IsAbs(path) && a.cfg.Input.Dir != "" {
			path = filepath.Join(a.cfg.Input.Dir, name)
		}

		label, ok := labels.LabelFor(path)
		if !ok {
			if !a.cfg.Input.LabelFromFileName {
				return nil, apperrors.NewConfigError(
					fmt.Sprintf("no channel label rule matches input file %s", path), nil).
					WithContext("path", path)
			}
			label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			a.logger.WarnContext(ctx, "No channel label rule matches file, using file name",
				slog.String("path", path),
				slog.String("channel", label))
		}

		if err := store.LoadFile(label, path); err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeMissingFile) {
				a.logger.WarnContext(ctx, "Input file not found, skipping channel",
					slog.String("path", path),
					slog.String("channel", label))
				continue
			}
			return nil, err
		}
		sources[label] = path
	}

	a.logger.InfoContext(ctx, "Channels loaded",
		slog.Int("channels", len(store.Labels())),
		slog.Int("records", store.TotalRecords()))
	return sources, nil
}

func (a *App) loadReference(ctx context.Context) (*comparison.ReferenceDataset, error) {
	if !a.cfg.HasComparison() {
		return nil, nil
	}
	if a.cfg.Comparison.UseSimulatedReference {
		ref := comparison.SimulatedDeuteronProton190()
		a.logger.WarnContext(ctx, "Using simulated reference data",
			slog.String("energy", ref.Energy),
			slog.String("note", ref.Note))
		return ref, nil
	}
	ref, err := comparison.LoadReferenceFile(a.cfg.Comparison.ReferenceFile)
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "Loaded reference data",
		slog.String("path", ref.Name),
		slog.Int("points", len(ref.Points)))
	return ref, nil
}

// writeOutputs assembles the configured artifacts for an analysis run.
func (a *App) writeOutputs(ctx context.Context, data report.ReportData, datasets []*channel.Dataset) ([]string, error) {
	tlab := data.Selection.Record.LabEnergy
	artifacts := []artifact{{
		name:  report.AyReportFileName(tlab),
		write: func(w io.Writer) error { return report.WriteAyReport(w, data) },
	}}
	if data.HasComparison() {
		artifacts = append(artifacts, artifact{
			name:  report.ComparisonReportFileName,
			write: func(w io.Writer) error { return report.WriteComparisonReport(w, data) },
		})
	}

	images := make(map[string][]byte)
	if a.cfg.Output.Plots || a.cfg.Output.PDF {
		title := fmt.Sprintf("Ay at Tlab = %.2f MeV (%s)", tlab, data.Selection.ChannelLabel)
		a.addPlot(ctx, images, report.ImageAyPlot, func() ([]byte, error) {
			return report.CreateAyPlot(data.Table, title)
		})
		if data.HasComparison() {
			a.addPlot(ctx, images, report.ImageComparisonPlot, func() ([]byte, error) {
				return report.CreateComparisonPlot(data.Table, data.Reference, data.Comparison)
			})
		}
		for _, ds := range datasets {
			if len(ds.Records) == 0 {
				continue
			}
			a.addPlot(ctx, images, report.ImageHeatmapPrefix+ds.Label, func() ([]byte, error) {
				return report.CreateElementHeatmap(ds)
			})
		}
	}
	if a.cfg.Output.Plots {
		if img, ok := images[report.ImageAyPlot]; ok {
			artifacts = append(artifacts, bytesArtifact(report.AyPlotFileName(tlab), img))
		}
		if img, ok := images[report.ImageComparisonPlot]; ok {
			artifacts = append(artifacts, bytesArtifact(report.ComparisonPlotFileName, img))
		}
		for _, ds := range datasets {
			if img, ok := images[report.ImageHeatmapPrefix+ds.Label]; ok {
				artifacts = append(artifacts, bytesArtifact(fmt.Sprintf(report.HeatmapFileNamePattern, fileSafe(ds.Label)), img))
			}
		}
	}
	if a.cfg.Output.PDF {
		artifacts = append(artifacts, artifact{
			name:  report.PDFReportFileName,
			write: func(w io.Writer) error { return report.BuildPDFReport(w, data, images) },
		})
	}
	if a.cfg.Output.XLSX {
		artifacts = append(artifacts, artifact{
			name:  report.WorkbookFileName,
			write: func(w io.Writer) error { return report.WriteWorkbook(w, data) },
		})
	}
	return a.writeArtifacts(ctx, artifacts)
}

func (a *App) writeComparisonOutputs(ctx context.Context, data report.ReportData) ([]string, error) {
	artifacts := []artifact{{
		name:  report.ComparisonReportFileName,
		write: func(w io.Writer) error { return report.WriteComparisonReport(w, data) },
	}}
	if a.cfg.Output.Plots {
		img, err := report.CreateComparisonPlot(data.Table, data.Reference, data.Comparison)
		if err != nil {
			a.logger.WarnContext(ctx, "Failed to render comparison plot", slog.String("error", err.Error()))
		} else {
			artifacts = append(artifacts, bytesArtifact(report.ComparisonPlotFileName, img))
		}
	}
	return a.writeArtifacts(ctx, artifacts)
}

// addPlot renders one image. A plot failure is logged and the plot skipped.
func (a *App) addPlot(ctx context.Context, images map[string][]byte, key string, render func() ([]byte, error)) {
	img, err := render()
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to render plot", slog.String("plot", key), slog.String("error", err.Error()))
		return
	}
	images[key] = img
}

type artifact struct {
	name  string
	write func(w io.Writer) error
}

func bytesArtifact(name string, data []byte) artifact {
	return artifact{name: name, write: func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}}
}

// writeArtifacts renders all artifacts before touching the output directory,
// then writes each one atomically.
func (a *App) writeArtifacts(ctx context.Context, artifacts []artifact) ([]string, error) {
	rendered := make([][]byte, len(artifacts))
	for i, art := range artifacts {
		var buf bytes.Buffer
		if err := art.write(&buf); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", art.name, err)
		}
		rendered[i] = buf.Bytes()
	}

	files := make([]string, 0, len(artifacts))
	for i, art := range artifacts {
		path := filepath.Join(a.cfg.Output.Dir, art.name)
		if err := report.WriteBytesAtomic(path, rendered[i]); err != nil {
			return files, err
		}
		a.logger.InfoContext(ctx, "Wrote output file", slog.String("path", path))
		files = append(files, path)
	}
	return files, nil
}

func readTheoryFile(path string) (analysis.AyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingFileError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	table, err := report.ReadAyTable(f)
	if err != nil {
		return nil, fmt.Errorf("theory file %s: %w", path, err)
	}
	return table, nil
}

// fileSafe turns a channel label such as "JP=1/2+" into "JP_1_2p".
func fileSafe(label string) string {
	r := strings.NewReplacer("=", "_", "/", "_", "+", "p", "-", "m", " ", "_")
	return r.Replace(label)
}
