package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/isostat/pkg/analysis"
	"github.com/ChrisMcGann/isostat/pkg/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured analysis",
	Long: `Run the differential and bivariate analyses declared in a configuration file.

Examples:
  # Run everything declared in the configuration
  isostat run --config analysis.yaml

  # Write results elsewhere with verbose logs
  isostat run --config analysis.yaml --out results-v2 --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyses("all", (*analysis.Analyzer).Run)
	},
}

var differentialCmd = &cobra.Command{
	Use:   "differential",
	Short: "Run the configured differential analyses",
	Long: `Compare two groups of samples per metabolite with the configured test, for
every file kind, compartment and comparison declared in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyses("differential", (*analysis.Analyzer).RunDifferential)
	},
}

var bivariateCmd = &cobra.Command{
	Use:   "bivariate",
	Short: "Run the configured bivariate analyses",
	Long: `Correlate MDV arrays or metabolite time profiles of two conditions, for the
behaviors declared in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyses("bivariate", (*analysis.Analyzer).RunBivariate)
	},
}

func runAnalyses(which string, run func(*analysis.Analyzer, *analysis.Dataset) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	fmt.Printf("Running %s analyses of %s...\n", which, cfg.Name)
	fmt.Printf("Input: %s\n", cfg.InputDir)
	fmt.Printf("Correction: %s (alpha %g)\n", cfg.Correction, cfg.Alpha)
	if cfg.Exclude != "" {
		fmt.Printf("Exclusions: %s\n", cfg.Exclude)
	}

	ds, err := analysis.LoadDataset(cfg.InputDir, cfg.FileKinds)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	a, err := analysis.New(cfg, log.WithField("run", cfg.Name))
	if err != nil {
		return fmt.Errorf("failed to prepare analysis: %w", err)
	}

	runErr := run(a, ds)
	if err := a.Close(runErr); err != nil && runErr == nil {
		return fmt.Errorf("failed to finalize outputs: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("analysis failed: %w", runErr)
	}

	fmt.Printf("\nAnalysis complete!\n")
	fmt.Printf("Written: %d result tables\n", len(a.Written()))
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	if cfg.SQLite != "" {
		fmt.Printf("Result store: %s\n", cfg.SQLite)
	}
	return nil
}
