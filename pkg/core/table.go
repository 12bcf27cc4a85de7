// Package core provides the data model shared by the isostat statistics engine:
// quantification tables, sample metadata, isotopologue indexes and comparisons.
package core

import (
	"fmt"
	"math"
	"strings"
)

// FileKind identifies which quantification a table holds.
type FileKind int

const (
	Abundances FileKind = iota
	MeanEnrichment
	IsotopologueProportions
	Isotopologues
)

var fileKindNames = map[FileKind]string{
	Abundances:              "abundances",
	MeanEnrichment:          "mean_enrichment",
	IsotopologueProportions: "isotopologue_proportions",
	Isotopologues:           "isotopologues",
}

// AllFileKinds lists the kinds in processing order.
var AllFileKinds = []FileKind{Abundances, MeanEnrichment, IsotopologueProportions, Isotopologues}

func (k FileKind) String() string {
	if name, ok := fileKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FileKind(%d)", int(k))
}

// ParseFileKind maps a kind name to its FileKind.
func ParseFileKind(s string) (FileKind, error) {
	for k, name := range fileKindNames {
		if name == strings.TrimSpace(s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// UnmarshalText lets FileKind be used directly as a config value.
func (k *FileKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFileKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsFraction reports whether values are fractions bounded by 1.
func (k FileKind) IsFraction() bool {
	return k == MeanEnrichment || k == IsotopologueProportions
}

// IsIsotopologueLevel reports whether rows are isotopologues rather than metabolites.
func (k FileKind) IsIsotopologueLevel() bool {
	return k == IsotopologueProportions || k == Isotopologues
}

// Table is a quantification table: rows keyed by metabolite or isotopologue
// name, columns keyed by sample name. Missing cells hold NaN.
type Table struct {
	Rows    []string
	Columns []string
	Values  [][]float64

	rowIndex map[string]int
	colIndex map[string]int
}

// NewTable creates a table and indexes its row and column keys.
func NewTable(rows, columns []string, values [][]float64) (*Table, error) {
	t := &Table{Rows: rows, Columns: columns, Values: values}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.reindex()
	return t, nil
}

func (t *Table) reindex() {
	t.rowIndex = make(map[string]int, len(t.Rows))
	for i, r := range t.Rows {
		t.rowIndex[r] = i
	}
	t.colIndex = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIndex[c] = i
	}
}

// Validate checks shape, key uniqueness and value domain.
func (t *Table) Validate() error {
	var errs []string

	if len(t.Values) != len(t.Rows) {
		errs = append(errs, fmt.Sprintf("%d value rows for %d row keys", len(t.Values), len(t.Rows)))
	}
	seen := make(map[string]bool, len(t.Rows))
	for _, r := range t.Rows {
		if r == "" {
			errs = append(errs, "empty row key")
		}
		if seen[r] {
			errs = append(errs, fmt.Sprintf("duplicate row key %q", r))
		}
		seen[r] = true
	}
	seenCol := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seenCol[c] {
			errs = append(errs, fmt.Sprintf("duplicate column %q", c))
		}
		seenCol[c] = true
	}
	for i, row := range t.Values {
		if len(row) != len(t.Columns) {
			errs = append(errs, fmt.Sprintf("row %d has %d values, want %d", i, len(row), len(t.Columns)))
			continue
		}
		for _, v := range row {
			if v < 0 || math.IsInf(v, 0) {
				errs = append(errs, fmt.Sprintf("row %d has invalid value %v", i, v))
				break
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Table",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// RowIndex returns the position of a row key.
func (t *Table) RowIndex(name string) (int, bool) {
	if t.rowIndex == nil {
		t.reindex()
	}
	i, ok := t.rowIndex[name]
	return i, ok
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.colIndex == nil {
		t.reindex()
	}
	i, ok := t.colIndex[name]
	return i, ok
}

// Row returns the values of a row, or nil if the key is unknown.
func (t *Table) Row(name string) []float64 {
	i, ok := t.RowIndex(name)
	if !ok {
		return nil
	}
	return t.Values[i]
}

// RowValues returns the values of row i at the given columns.
func (t *Table) RowValues(i int, columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for j, c := range columns {
		ci, ok := t.ColumnIndex(c)
		if !ok {
			return nil, fmt.Errorf("column %q not in table", c)
		}
		out[j] = t.Values[i][ci]
	}
	return out, nil
}

// SelectColumns returns a new table restricted to the given columns, in that order.
func (t *Table) SelectColumns(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for j, c := range columns {
		ci, ok := t.ColumnIndex(c)
		if !ok {
			return nil, fmt.Errorf("column %q not in table", c)
		}
		idx[j] = ci
	}

	values := make([][]float64, len(t.Rows))
	for i, row := range t.Values {
		values[i] = make([]float64, len(idx))
		for j, ci := range idx {
			values[i][j] = row[ci]
		}
	}
	return NewTable(append([]string(nil), t.Rows...), append([]string(nil), columns...), values)
}

// SelectRows returns a new table restricted to the given row keys, in that order.
func (t *Table) SelectRows(rows []string) (*Table, error) {
	values := make([][]float64, len(rows))
	for i, r := range rows {
		ri, ok := t.RowIndex(r)
		if !ok {
			return nil, fmt.Errorf("row %q not in table", r)
		}
		values[i] = append([]float64(nil), t.Values[ri]...)
	}
	return NewTable(append([]string(nil), rows...), append([]string(nil), t.Columns...), values)
}

// DropRows returns a new table without the rows matched by drop.
func (t *Table) DropRows(drop func(row string) bool) *Table {
	var rows []string
	var values [][]float64
	for i, r := range t.Rows {
		if drop(r) {
			continue
		}
		rows = append(rows, r)
		values = append(values, append([]float64(nil), t.Values[i]...))
	}
	out := &Table{Rows: rows, Columns: append([]string(nil), t.Columns...), Values: values}
	out.reindex()
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	values := make([][]float64, len(t.Values))
	for i, row := range t.Values {
		values[i] = append([]float64(nil), row...)
	}
	out := &Table{
		Rows:    append([]string(nil), t.Rows...),
		Columns: append([]string(nil), t.Columns...),
		Values:  values,
	}
	out.reindex()
	return out
}

// Present returns the non-missing values of a slice.
func Present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// CountMissing returns how many values are NaN.
func CountMissing(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
