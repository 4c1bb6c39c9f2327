package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/user/ay_analyzer_go/internal/analysis"
	"github.com/user/ay_analyzer_go/internal/config"
	apperrors "github.com/user/ay_analyzer_go/internal/errors"
	"github.com/user/ay_analyzer_go/internal/infrastructure"
)

// Exit codes.
const (
	exitFailure      = 1
	exitConfig       = 2
	exitEmptyDataset = 3
)

func exitCode(err error) int {
	switch {
	case apperrors.IsType(err, apperrors.ErrTypeEmptyDataset):
		return exitEmptyDataset
	case apperrors.IsType(err, apperrors.ErrTypeConfig):
		return exitConfig
	default:
		return exitFailure
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func (g *globalFlags) overrides(cmd *cobra.Command) []config.Override {
	var out []config.Override
	if cmd.Flags().Changed("log-level") {
		level := g.logLevel
		out = append(out, func(c *config.Config) { c.Logging.Level = level })
	}
	return out
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "ay_analyzer",
		Short: "Analyzing power Ay post-processing for three-body scattering output",
		Long: `Reads U-matrix element files written by the three-body solver, picks the
energy point nearest a target lab energy, computes the vector analyzing
power Ay with a selectable approximation and compares it with reference data.

Configuration comes from defaults, an optional YAML file (--config) and
AYA_* environment variables, in that order; flags override all three.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newAnalyzeCmd(g, stderr),
		newCompareCmd(g, stderr),
		newKinematicsCmd(),
	)
	return root
}

// setup loads configuration and builds the logger.
func setup(cmd *cobra.Command, g *globalFlags, stderr io.Writer, profile config.Profile, extra ...config.Override) (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.LoadFor(g.configPath, profile, append(g.overrides(cmd), extra...)...)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, closer, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return config.Config{}, nil, nil, apperrors.NewConfigError("failed to initialise logging", err)
	}
	logger.Debug("Effective configuration",
		slog.String("command", cmd.Name()),
		slog.String("config_file", g.configPath),
		slog.String("config", cfg.String()))
	return cfg, logger, closer, nil
}

func newAnalyzeCmd(g *globalFlags, stderr io.Writer) *cobra.Command {
	var (
		target    float64
		variant   string
		outputDir string
		reference string
		simulated bool
		pdf, xlsx bool
		noPlots   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Select the nearest energy point and compute Ay",
		Long: `Load the configured U-matrix files, select the record whose lab energy is
closest to the target, compute Ay over the angle grid and write the
theoretical results. With reference data configured, a comparison report
with chi-squared is written as well.

Examples:
  ay_analyzer analyze --config configs/ay_analyzer.example.yaml
  ay_analyzer analyze --target 135.6 --variant four-element --simulated-reference`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []config.Override
			flags := cmd.Flags()
			if flags.Changed("target") {
				extra = append(extra, func(c *config.Config) { c.Selection.TargetLabEnergy = target })
			}
			if flags.Changed("variant") {
				extra = append(extra, func(c *config.Config) { c.Analysis.Variant = variant })
			}
			if flags.Changed("output-dir") {
				extra = append(extra, func(c *config.Config) { c.Output.Dir = outputDir })
			}
			if flags.Changed("reference") {
				extra = append(extra, func(c *config.Config) { c.Comparison.ReferenceFile = reference })
			}
			if flags.Changed("simulated-reference") {
				extra = append(extra, func(c *config.Config) { c.Comparison.UseSimulatedReference = simulated })
			}
			if flags.Changed("pdf") {
				extra = append(extra, func(c *config.Config) { c.Output.PDF = pdf })
			}
			if flags.Changed("xlsx") {
				extra = append(extra, func(c *config.Config) { c.Output.XLSX = xlsx })
			}
			if noPlots {
				extra = append(extra, func(c *config.Config) { c.Output.Plots = false })
			}

			cfg, logger, closer, err := setup(cmd, g, stderr, config.ProfileAnalyze, extra...)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := infrastructure.WithRunID(context.Background(), infrastructure.NewRunID())
			res, err := NewApp(cfg, logger).Analyze(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sel := res.Selection
			fmt.Fprintf(out, "Run %s\n", res.RunID)
			fmt.Fprintf(out, "Selected %s: Tlab = %.2f MeV (target %.2f, difference %.2f), Ecm = %.2f MeV\n",
				sel.ChannelLabel, sel.Record.LabEnergy, sel.TargetEnergy, sel.EnergyDifference, sel.Record.CMEnergy)
			fmt.Fprintf(out, "Ay (%s) = %.6f\n", cfg.Analysis.Variant, res.Table[0].Ay)
			if res.Comparison != nil {
				fmt.Fprintf(out, "Comparison: %s\n", res.Comparison.Summary())
			}
			for _, f := range res.Files {
				fmt.Fprintf(out, "  wrote %s\n", f)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64VarP(&target, "target", "t", 0, "Target lab energy in MeV")
	f.StringVar(&variant, "variant", "", "Ay formula: four-element or two-element")
	f.StringVarP(&outputDir, "output-dir", "o", "", "Directory for output files")
	f.StringVar(&reference, "reference", "", "Reference data file (angle Ay error)")
	f.BoolVar(&simulated, "simulated-reference", false, "Compare against the built-in simulated 190 MeV/u data")
	f.BoolVar(&pdf, "pdf", false, "Write a PDF report")
	f.BoolVar(&xlsx, "xlsx", false, "Write an XLSX workbook")
	f.BoolVar(&noPlots, "no-plots", false, "Skip PNG plots")
	return cmd
}

func newCompareCmd(g *globalFlags, stderr io.Writer) *cobra.Command {
	var (
		theory    string
		reference string
		simulated bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare an existing Ay results file with reference data",
		Long: `Read a theoretical Ay table (as written by "analyze"), interpolate it onto
the reference angles and report chi-squared and reduced chi-squared.

Examples:
  ay_analyzer compare --theory results/Ay_theoretical_results_136MeV.txt --reference ay_exp.dat
  ay_analyzer compare --theory results/Ay_theoretical_results_136MeV.txt --simulated-reference`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []config.Override
			flags := cmd.Flags()
			if flags.Changed("reference") {
				extra = append(extra, func(c *config.Config) {
					c.Comparison.ReferenceFile = reference
					c.Comparison.UseSimulatedReference = false
				})
			}
			if flags.Changed("simulated-reference") {
				extra = append(extra, func(c *config.Config) { c.Comparison.UseSimulatedReference = simulated })
			}
			if flags.Changed("output-dir") {
				extra = append(extra, func(c *config.Config) { c.Output.Dir = outputDir })
			}

			cfg, logger, closer, err := setup(cmd, g, stderr, config.ProfileCompare, extra...)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := infrastructure.WithRunID(context.Background(), infrastructure.NewRunID())
			res, err := NewApp(cfg, logger).Compare(ctx, theory)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", res.RunID)
			fmt.Fprintf(out, "Comparison: %s\n", res.Comparison.Summary())
			if res.Comparison.OutOfRange > 0 {
				fmt.Fprintf(out, "  %d reference angle(s) outside the theoretical range were clamped\n", res.Comparison.OutOfRange)
			}
			for _, f := range res.Files {
				fmt.Fprintf(out, "  wrote %s\n", f)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&theory, "theory", "", "Theoretical Ay results file [required]")
	f.StringVar(&reference, "reference", "", "Reference data file (angle Ay error)")
	f.BoolVar(&simulated, "simulated-reference", false, "Use the built-in simulated 190 MeV/u data")
	f.StringVarP(&outputDir, "output-dir", "o", "", "Directory for output files")
	_ = cmd.MarkFlagRequired("theory")
	return cmd
}

func newKinematicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinematics <T per nucleon (MeV/u)>...",
		Short: "Convert d+p beam energies per nucleon to centre-of-mass energies",
		Long: `Print the deuteron lab kinetic energy and the relativistic centre-of-mass
kinetic energy for each beam energy given in MeV per nucleon.

Example:
  ay_analyzer kinematics 190`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				t, err := strconv.ParseFloat(arg, 64)
				if err != nil || t < 0 {
					return apperrors.NewValidationError(fmt.Sprintf("invalid energy per nucleon %q", arg))
				}
				fmt.Fprintf(out, "T = %.2f MeV/u  Tlab = %.2f MeV  Ecm = %.4f MeV\n",
					t, 2*t, analysis.CMEnergyFromLabPerNucleon(t))
			}
			return nil
		},
	}
}
