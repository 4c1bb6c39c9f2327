package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/user/ay_analyzer_go/internal/errors"
)

// EnvPrefix is the prefix of every environment override, e.g. AYA_SELECTION_TARGET_LAB_ENERGY.
const EnvPrefix = "AYA"

// Config represents the complete application configuration
type Config struct {
	Input      InputConfig      `yaml:"input" split_words:"true"`
	Selection  SelectionConfig  `yaml:"selection" split_words:"true"`
	Analysis   AnalysisConfig   `yaml:"analysis" split_words:"true"`
	Comparison ComparisonConfig `yaml:"comparison" split_words:"true"`
	Output     OutputConfig     `yaml:"output" split_words:"true"`
	Logging    LoggingConfig    `yaml:"logging" split_words:"true"`
}

// InputConfig names the U-matrix files and how their channel labels are derived
type InputConfig struct {
	Dir           string             `yaml:"dir" split_words:"true"`
	Files         []string           `yaml:"files" split_words:"true" validate:"min=1,dive,required"`
	ChannelLabels []ChannelLabelRule `yaml:"channel_labels" ignored:"true" validate:"min=1,dive"`

	// LabelFromFileName labels a file that matches no rule with its base name.
	// Off by default: such a file is a configuration error.
	LabelFromFileName bool `yaml:"label_from_file_name" split_words:"true"`
}

// ChannelLabelRule maps a file-name substring to a channel label
type ChannelLabelRule struct {
	Match string `yaml:"match" validate:"required"`
	Label string `yaml:"label" validate:"required"`
}

// SelectionConfig contains the energy-point selection parameters
type SelectionConfig struct {
	TargetLabEnergy float64 `yaml:"target_lab_energy" split_words:"true" validate:"gte=0"`
}

// AnalysisConfig selects the Ay formula and the angle grid
type AnalysisConfig struct {
	Variant string      `yaml:"variant" split_words:"true" validate:"oneof=four-element two-element"`
	Angles  AngleConfig `yaml:"angles" split_words:"true"`
}

// AngleConfig is either an explicit list of angles or an evenly spaced grid
type AngleConfig struct {
	Values []float64 `yaml:"values" split_words:"true"`
	Start  float64   `yaml:"start" split_words:"true" validate:"gte=0,lte=180"`
	Stop   float64   `yaml:"stop" split_words:"true" validate:"gte=0,lte=180"`
	Count  int       `yaml:"count" split_words:"true" validate:"gte=0"`
}

// ComparisonConfig contains the reference-data settings
type ComparisonConfig struct {
	ReferenceFile         string `yaml:"reference_file" split_words:"true"`
	UseSimulatedReference bool   `yaml:"use_simulated_reference" split_words:"true"`
}

// OutputConfig controls which artifacts are written
type OutputConfig struct {
	Dir       string `yaml:"dir" split_words:"true" validate:"required"`
	Potential string `yaml:"potential" split_words:"true"`
	Plots     bool   `yaml:"plots" split_words:"true"`
	PDF       bool   `yaml:"pdf" split_words:"true"`
	XLSX      bool   `yaml:"xlsx" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// Default returns the configuration used when no file is given. The target lab
// energy is deliberately left unset; callers must supply it.
func Default() Config {
	return Config{
		Input: InputConfig{
			Dir: "Output",
			Files: []string{
				"U_PW_elements_Np_30_Nq_30_JP_1_1_Jmax_1_PSI_0.txt",
				"U_PW_elements_Np_30_Nq_30_JP_1_-1_Jmax_1_PSI_0.txt",
			},
			ChannelLabels: []ChannelLabelRule{
				{Match: "JP_1_1_", Label: "JP=1/2+"},
				{Match: "JP_1_-1_", Label: "JP=1/2-"},
			},
		},
		Analysis: AnalysisConfig{
			Variant: "two-element",
			Angles:  AngleConfig{Start: 10, Stop: 170, Count: 81},
		},
		Output: OutputConfig{
			Dir:       "results",
			Potential: "Nijmegen",
			Plots:     true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/ay_analyzer.log",
		},
	}
}

// Profile names the set of rules a command's configuration must satisfy.
type Profile int

const (
	// ProfileAnalyze requires everything, including a target lab energy.
	ProfileAnalyze Profile = iota
	// ProfileCompare skips the selection section.
	ProfileCompare
)

// Override adjusts a configuration after file and environment loading, e.g. from
// command-line flags.
type Override func(*Config)

// Load builds the configuration from defaults, then the YAML file at path (if
// path is non-empty), then AYA_* environment variables, then overrides, and
// validates the result for ProfileAnalyze.
func Load(path string, overrides ...Override) (Config, error) {
	return LoadFor(path, ProfileAnalyze, overrides...)
}

// LoadFor is Load with the validation profile chosen by the caller.
func LoadFor(path string, profile Profile, overrides ...Override) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, apperrors.NewConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	// Fields carry no default tags, so unset variables leave file values in place.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, apperrors.NewConfigError("failed to load config from env", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.ValidateFor(profile); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against ProfileAnalyze.
func (c Config) Validate() error {
	return c.ValidateFor(ProfileAnalyze)
}

// ValidateFor checks struct constraints, the cross-field angle rules and, for
// ProfileAnalyze, that a target lab energy is set.
func (c Config) ValidateFor(profile Profile) error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	if profile == ProfileAnalyze && !(c.Selection.TargetLabEnergy > 0) {
		return apperrors.NewConfigError("selection.target_lab_energy must be set to a positive lab energy", nil)
	}

	a := c.Analysis.Angles
	if len(a.Values) == 0 {
		if a.Count < 1 {
			return apperrors.NewConfigError("analysis.angles needs either values or a positive count", nil)
		}
		if a.Count > 1 && a.Stop <= a.Start {
			return apperrors.NewConfigError(fmt.Sprintf("analysis.angles stop (%.2f) must exceed start (%.2f)", a.Stop, a.Start), nil)
		}
	}
	for i := 1; i < len(a.Values); i++ {
		if a.Values[i] <= a.Values[i-1] {
			return apperrors.NewConfigError("analysis.angles values must be strictly increasing", nil)
		}
	}

	if c.Comparison.ReferenceFile != "" && c.Comparison.UseSimulatedReference {
		return apperrors.NewConfigError("comparison.reference_file and comparison.use_simulated_reference are mutually exclusive", nil)
	}
	return nil
}

// HasComparison reports whether a reference dataset is configured.
func (c Config) HasComparison() bool {
	return c.Comparison.ReferenceFile != "" || c.Comparison.UseSimulatedReference
}

// String renders the configuration as YAML for diagnostics.
func (c Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(out))
}
