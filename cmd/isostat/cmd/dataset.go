package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/isostat/pkg/analysis"
	"github.com/ChrisMcGann/isostat/pkg/core"
	tsvwriter "github.com/ChrisMcGann/isostat/pkg/writer/tsv"
)

var deriveCmd = &cobra.Command{
	Use:   "derive [dir]",
	Short: "Derive mean enrichment and absolute isotopologues",
	Long: `Compute mean enrichment from isotopologue proportions and, when abundances are
present, absolute isotopologues (proportion times metabolite abundance) along
with their total labeled abundance and one table per mass shift.

Examples:
  # Fill in the missing derived tables of a dataset
  isostat derive data/

  # Recompute them into another directory
  isostat derive data/ --out derived/ --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: runDerive,
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a dataset against its metadata",
	Long:  `Check that the tables of a dataset directory match metadata.tsv and that isotopologue tables and timepoints are usable.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := analysis.LoadDataset(args[0], core.AllFileKinds)
		if err != nil {
			return err
		}
		if err := analysis.Check(ds); err != nil {
			return fmt.Errorf("dataset %s is invalid:\n%w", args[0], err)
		}
		fmt.Printf("Dataset %s is valid (%d tables, %d samples)\n", args[0], len(ds.Tables), len(ds.Metadata.Samples))
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [dir]",
	Short: "Summarize a dataset",
	Long:  `Print the experimental groups of a dataset and the size of each of its tables.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := analysis.LoadDataset(args[0], core.AllFileKinds)
		if err != nil {
			return err
		}
		s := analysis.Summarize(ds)

		fmt.Printf("Samples: %d\n", s.Samples)
		fmt.Printf("Compartments: %s\n", strings.Join(s.Compartments, ", "))
		fmt.Printf("Conditions: %s\n", strings.Join(s.Conditions, ", "))
		fmt.Printf("Timepoints: %s\n\n", strings.Join(s.Timepoints, ", "))

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tROWS\tMETABOLITES\tSAMPLES\tMISSING")
		for _, t := range s.Tables {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Kind, t.Rows, t.Metabolites, t.Columns, t.Missing)
		}
		return tw.Flush()
	},
}

func runDerive(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ds, err := analysis.LoadDataset(dir, core.AllFileKinds)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	derived, err := analysis.Derive(ds, overwrite)
	if err != nil {
		return err
	}
	if len(derived) == 0 {
		fmt.Printf("Nothing to derive, use --overwrite to recompute existing tables\n")
		return nil
	}

	out := deriveOut
	if out == "" {
		out = dir
	}
	w, err := tsvwriter.NewWriter(out)
	if err != nil {
		return err
	}

	for _, kind := range core.AllFileKinds {
		t, ok := derived[kind]
		if !ok {
			continue
		}
		path, err := w.Table(tsvwriter.TableName(kind), t)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", kind, err)
		}
		log.WithField("kind", kind).WithField("rows", len(t.Rows)).Debug("derived table written")
		fmt.Printf("Wrote %s (%d rows)\n", path, len(t.Rows))
	}

	iso, ok := derived[core.Isotopologues]
	if !ok {
		return nil
	}
	split, names, err := analysis.SplitTables(iso)
	if err != nil {
		return err
	}
	for _, name := range names {
		path, err := w.Table(name+".tsv", split[name])
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fmt.Printf("Wrote %s (%d rows)\n", path, len(split[name].Rows))
	}
	return nil
}
