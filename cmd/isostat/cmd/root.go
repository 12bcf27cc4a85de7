// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/isostat/pkg/config"
)

var (
	// Global flags
	logLevel  string
	logFormat string

	// Flags for analysis commands
	configFile string
	outputDir  string

	// Flags for derive command
	deriveOut string
	overwrite bool
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "isostat",
	Short: "isostat - Isotope-labeling metabolomics statistics",
	Long: `isostat compares isotope-labeling metabolomics measurements (abundances,
mean enrichment, isotopologue proportions and absolute isotopologues) across
conditions and timepoints, and writes ranked result tables.

Supported analyses:
- Differential tests between two groups (MW, KW, ranksum, Wcox, Tt, BrMu,
  prm-scipy, disfit)
- MDV and time-profile correlations (pearson, spearman)
- Multiple-testing correction of every result batch`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from "+config.EnvLogLevel+", else info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	for _, c := range []*cobra.Command{runCmd, differentialCmd, bivariateCmd} {
		c.Flags().StringVarP(&configFile, "config", "c", "", "Analysis configuration file (required)")
		c.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (overrides the configuration)")
		c.MarkFlagRequired("config")
		rootCmd.AddCommand(c)
	}

	deriveCmd.Flags().StringVarP(&deriveOut, "out", "o", "", "Output directory (default: the dataset directory)")
	deriveCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Recompute tables already present in the dataset")
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)
}

// setupLogging configures the logger from flags, falling back to the
// environment and a .env file in the working directory.
func setupLogging(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(logFormat) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format '%s', must be text or json", logFormat)
	}
	return nil
}
