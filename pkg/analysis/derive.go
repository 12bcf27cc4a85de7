package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// ErrMissingKind is returned when a derivation lacks an input table.
var ErrMissingKind = errors.New("required table not loaded")

// Derive computes the tables obtainable from isotopologue proportions: mean
// enrichment always, absolute isotopologues when abundances are loaded too.
// Kinds already present in the dataset are recomputed only if overwrite is set.
func Derive(ds *Dataset, overwrite bool) (map[core.FileKind]*core.Table, error) {
	props, ok := ds.Tables[core.IsotopologueProportions]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKind, core.IsotopologueProportions)
	}

	out := make(map[core.FileKind]*core.Table)
	if _, exists := ds.Tables[core.MeanEnrichment]; overwrite || !exists {
		t, err := core.MeanEnrichments(props)
		if err != nil {
			return nil, err
		}
		out[core.MeanEnrichment] = t
	}

	abund, hasAbund := ds.Tables[core.Abundances]
	if _, exists := ds.Tables[core.Isotopologues]; hasAbund && (overwrite || !exists) {
		t, err := core.IsotopologueAbundances(props, abund)
		if err != nil {
			return nil, fmt.Errorf("absolute isotopologues: %w", err)
		}
		out[core.Isotopologues] = t
	}
	return out, nil
}

// TotalMarkedName is the file stem of the total labeled abundance table.
const TotalMarkedName = "isotopologues_totmk"

// SplitTables breaks absolute isotopologues into the total labeled abundance
// of each metabolite and one table per mass shift, keyed by file stem. names
// lists the stems sorted.
func SplitTables(isotopologues *core.Table) (tables map[string]*core.Table, names []string, err error) {
	out := make(map[string]*core.Table)
	total, err := core.TotalMarked(isotopologues)
	if err != nil {
		return nil, nil, fmt.Errorf("total marked: %w", err)
	}
	out[TotalMarkedName] = total

	byShift, err := core.SplitByMassShift(isotopologues)
	if err != nil {
		return nil, nil, err
	}
	for k, t := range byShift {
		out[fmt.Sprintf("%s_m+%d", core.Isotopologues, k)] = t
	}

	names = make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	return out, names, nil
}
