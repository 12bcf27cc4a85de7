// Package config loads the analysis configuration from YAML, with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/isostat/pkg/bivariate"
	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/distfit"
	"github.com/ChrisMcGann/isostat/pkg/padj"
	"github.com/ChrisMcGann/isostat/pkg/prep"
	"github.com/ChrisMcGann/isostat/pkg/univariate"
)

// Environment variables overriding file settings
const (
	EnvInputDir    = "ISOSTAT_INPUT_DIR"
	EnvOutputDir   = "ISOSTAT_OUTPUT_DIR"
	EnvSeed        = "ISOSTAT_SEED"
	EnvSQLite      = "ISOSTAT_SQLITE"
	EnvMetricsFile = "ISOSTAT_METRICS_FILE"
	EnvLogLevel    = "ISOSTAT_LOG_LEVEL"
)

// MetadataFile is the metadata file name inside the input directory.
const MetadataFile = "metadata.tsv"

// Config is a complete analysis configuration
type Config struct {
	Name      string          `yaml:"name"`
	InputDir  string          `yaml:"input_dir"`
	OutputDir string          `yaml:"output_dir"`
	FileKinds []core.FileKind `yaml:"file_kinds"`
	// Impute maps a file kind name to its zero-imputation policy
	Impute     map[string]prep.ImputePolicy `yaml:"impute"`
	Correction padj.Method                  `yaml:"correction"`
	Alpha      float64                      `yaml:"alpha"`
	Seed       uint64                       `yaml:"seed"`

	Differential []DifferentialConfig `yaml:"differential"`
	Bivariate    *BivariateConfig     `yaml:"bivariate"`
	DistFit      DistFitConfig        `yaml:"distfit"`

	// Exclude is a metabolite,compartment CSV of rows left out of testing
	Exclude     string `yaml:"exclude"`
	SQLite      string `yaml:"sqlite"`
	MetricsFile string `yaml:"metrics_file"`
}

// DifferentialConfig declares one univariate analysis
type DifferentialConfig struct {
	Comparisons [][]string      `yaml:"comparisons"`
	Timepoints  []string        `yaml:"timepoints"`
	Test        univariate.Test `yaml:"test"`
	TimeCourse  bool            `yaml:"time_course"`
}

// BivariateConfig declares the bivariate analyses. Conditions are compared
// pairwise unless Pairs lists the [interest, baseline] pairs explicitly.
type BivariateConfig struct {
	Conditions []string              `yaml:"conditions"`
	Pairs      [][]string            `yaml:"pairs"`
	Method     bivariate.Method      `yaml:"method"`
	Behaviors  []comparison.Behavior `yaml:"behaviors"`
}

// Selection resolves the declared conditions against metadata.
func (b *BivariateConfig) Selection(meta *core.Metadata) (*comparison.Selection, error) {
	return comparison.Select(b.Conditions, b.Pairs, meta)
}

// DistFitConfig tunes null distribution fitting
type DistFitConfig struct {
	Tail    distfit.Tail `yaml:"tail"`
	Bins    int          `yaml:"bins"`
	Catalog []string     `yaml:"catalog"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		OutputDir:  "results",
		FileKinds:  append([]core.FileKind(nil), core.AllFileKinds...),
		Impute:     map[string]prep.ImputePolicy{},
		Correction: padj.FdrBH,
		Alpha:      padj.DefaultAlpha,
		Seed:       distfit.DefaultSeed,
		DistFit: DistFitConfig{
			Tail: distfit.TailAuto,
			Bins: distfit.DefaultBins,
		},
	}
}

// Decode reads YAML over the defaults. Unknown fields are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load reads a configuration file, loads a .env file next to it when one
// exists, applies environment overrides and validates the result. Relative
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := LoadEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads variables from the given .env files. Missing files are
// skipped; variables already set are kept.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides paths and seed from ISOSTAT_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvInputDir); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvSQLite); v != "" {
		c.SQLite = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &core.ValidationError{Field: EnvSeed, Message: fmt.Sprintf("invalid seed %q", v)}
		}
		c.Seed = seed
	}
	return nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.InputDir, &c.OutputDir, &c.Exclude, &c.SQLite, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks values that decoding alone cannot reject.
func (c *Config) Validate() error {
	var errs []string

	if c.InputDir == "" {
		errs = append(errs, "input_dir is required")
	}
	if !(c.Alpha > 0 && c.Alpha < 1) {
		errs = append(errs, fmt.Sprintf("alpha must be in (0, 1), got %v", c.Alpha))
	}
	if c.DistFit.Bins < 0 {
		errs = append(errs, "distfit.bins must not be negative")
	}
	if len(c.DistFit.Catalog) > 0 {
		if _, err := distfit.DefaultCatalog().Select(c.DistFit.Catalog); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Bivariate != nil && len(c.Bivariate.Conditions) == 0 && len(c.Bivariate.Pairs) == 0 {
		errs = append(errs, "bivariate needs conditions or pairs")
	}
	for kind := range c.Impute {
		if _, err := core.ParseFileKind(kind); err != nil {
			errs = append(errs, fmt.Sprintf("impute: %v", err))
		}
	}
	if len(errs) > 0 {
		return &core.ValidationError{Field: "Config", Message: strings.Join(errs, "; ")}
	}

	for i, d := range c.Differential {
		if err := checkArity(d.Comparisons); err != nil {
			return fmt.Errorf("differential[%d]: %w", i, err)
		}
	}
	if c.Bivariate != nil {
		if err := checkArity(c.Bivariate.Pairs); err != nil {
			return fmt.Errorf("bivariate: %w", err)
		}
	}
	return nil
}

func checkArity(pairs [][]string) error {
	for _, p := range pairs {
		if len(p) != 2 {
			return fmt.Errorf("%w: got %v", core.ErrArity, p)
		}
	}
	return nil
}

// ImputePolicy returns the configured policy for a kind, or no imputation.
func (c *Config) ImputePolicy(kind core.FileKind) prep.ImputePolicy {
	if p, ok := c.Impute[kind.String()]; ok {
		return p
	}
	return prep.ImputePolicy{}
}

// Fitter builds the distribution fitter from the distfit settings.
func (c *Config) Fitter() (*distfit.Fitter, error) {
	f := distfit.NewFitter()
	if c.DistFit.Bins > 0 {
		f.Bins = c.DistFit.Bins
	}
	if len(c.DistFit.Catalog) > 0 {
		catalog, err := distfit.DefaultCatalog().Select(c.DistFit.Catalog)
		if err != nil {
			return nil, err
		}
		f.Catalog = catalog
	}
	return f, nil
}

// MetadataPath is the metadata file of the input directory.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.InputDir, MetadataFile)
}

// TablePath is the table file of a kind in the input directory.
func (c *Config) TablePath(kind core.FileKind) string {
	return filepath.Join(c.InputDir, kind.String()+".tsv")
}
