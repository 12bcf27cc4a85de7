package analysis

import (
	"errors"
	"fmt"

	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/gmean"
)

// TableSummary describes one loaded table.
type TableSummary struct {
	Kind        core.FileKind
	Rows        int
	Columns     int
	Missing     int
	Metabolites int
}

// Summary describes a dataset.
type Summary struct {
	Samples      int
	Compartments []string
	Conditions   []string
	Timepoints   []string
	Tables       []TableSummary
}

// Summarize counts samples, groups and missing cells of a dataset.
func Summarize(ds *Dataset) *Summary {
	s := &Summary{
		Samples:      len(ds.Metadata.Samples),
		Compartments: ds.Metadata.Compartments(),
		Conditions:   ds.Metadata.Conditions(),
		Timepoints:   ds.Metadata.Timepoints(),
	}
	for _, kind := range ds.Kinds() {
		t := ds.Tables[kind]
		ts := TableSummary{Kind: kind, Rows: len(t.Rows), Columns: len(t.Columns), Metabolites: len(t.Rows)}
		for _, row := range t.Values {
			ts.Missing += core.CountMissing(row)
		}
		if kind.IsIsotopologueLevel() {
			if idx, err := core.BuildIsotopologueIndex(t.Rows); err == nil {
				ts.Metabolites = len(idx.Metabolites())
			}
		}
		s.Tables = append(s.Tables, ts)
	}
	return s
}

// Check reports every structural problem of a dataset that would stop an
// analysis. Problems are joined into one error.
func Check(ds *Dataset) error {
	var errs []error

	for _, cond := range ds.Metadata.Conditions() {
		if _, err := comparison.Timepoints(ds.Metadata.WithCondition(cond)); err != nil {
			errs = append(errs, fmt.Errorf("condition %s: %w", cond, err))
		}
	}

	for _, kind := range ds.Kinds() {
		t := ds.Tables[kind]
		if err := ds.Metadata.CheckColumns(t.Columns); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
		if !kind.IsIsotopologueLevel() {
			continue
		}
		idx, err := core.BuildIsotopologueIndex(t.Rows)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		if err := gmean.Join(idx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}
