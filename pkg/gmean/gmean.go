// Package gmean aggregates sample groups into per-row geometric means and
// assembles the ordered arrays compared by the bivariate tests.
package gmean

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// MinPresent is the number of non-missing values a mean needs to be reported.
const MinPresent = 2

// Sanitized returns the geometric mean of the present values, rounded, or NaN
// when fewer than MinPresent values are present.
func Sanitized(values []float64) float64 {
	present := core.Present(values)
	if len(present) < MinPresent {
		return math.NaN()
	}
	return core.RoundFloat(stat.GeometricMean(present, nil), core.Precision)
}

// RowMeans applies Sanitized to every row over the given columns.
func RowMeans(t *core.Table, columns []string) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	for i := range t.Rows {
		values, err := t.RowValues(i, columns)
		if err != nil {
			return nil, err
		}
		out[i] = Sanitized(values)
	}
	return out, nil
}

// Side is one ordered array of a comparison. Keys carry the positional
// meaning of each value (isotopologue name suffix or timepoint label).
type Side struct {
	Keys   []string
	Values []float64
}

// Pair holds the two arrays compared for one metabolite.
type Pair struct {
	Metabolite string
	A          Side
	B          Side
}

// Validate fails when the two sides differ in length or positional meaning.
func (p Pair) Validate() error {
	if len(p.A.Values) != len(p.B.Values) || len(p.A.Keys) != len(p.B.Keys) ||
		len(p.A.Keys) != len(p.A.Values) {
		return fmt.Errorf("%w: %s has %d vs %d values", core.ErrLengthMismatch,
			p.Metabolite, len(p.A.Values), len(p.B.Values))
	}
	for i := range p.A.Keys {
		if p.A.Keys[i] != p.B.Keys[i] {
			return fmt.Errorf("%w: %s position %d is %s vs %s", core.ErrLengthMismatch,
				p.Metabolite, i, p.A.Keys[i], p.B.Keys[i])
		}
	}
	return nil
}

// Join checks that the index and the table cover exactly the same row keys.
func Join(idx *core.IsotopologueIndex, t *core.Table) error {
	if idx.Len() != len(t.Rows) {
		return fmt.Errorf("%w: index has %d isotopologues, table has %d rows",
			core.ErrJoin, idx.Len(), len(t.Rows))
	}
	for _, met := range idx.Metabolites() {
		for _, iso := range idx.Members(met) {
			if _, ok := t.RowIndex(iso.Name); !ok {
				return fmt.Errorf("%w: %s missing from table", core.ErrJoin, iso.Name)
			}
		}
	}
	return nil
}

// MDVArrays builds, per metabolite, the geometric-mean isotopologue arrays of
// two sample groups, ordered by ascending mass shift.
func MDVArrays(t *core.Table, idx *core.IsotopologueIndex, colsA, colsB []string) ([]Pair, error) {
	if err := Join(idx, t); err != nil {
		return nil, err
	}

	meansA, err := RowMeans(t, colsA)
	if err != nil {
		return nil, err
	}
	meansB, err := RowMeans(t, colsB)
	if err != nil {
		return nil, err
	}

	var out []Pair
	for _, met := range idx.Metabolites() {
		p := Pair{Metabolite: met}
		for _, iso := range idx.Members(met) {
			ri, _ := t.RowIndex(iso.Name)
			key := fmt.Sprintf("m+%d", iso.MassShift)
			p.A.Keys = append(p.A.Keys, key)
			p.A.Values = append(p.A.Values, meansA[ri])
			p.B.Keys = append(p.B.Keys, key)
			p.B.Values = append(p.B.Values, meansB[ri])
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// profileSide computes, for one row, the geometric mean of a condition at
// each of its timepoints ordered by numeric time.
func profileSide(t *core.Table, row int, meta *core.Metadata, condition string) (Side, error) {
	sub := meta.WithCondition(condition)
	var s Side
	for _, tp := range sub.Timepoints() {
		values, err := t.RowValues(row, sub.WithTimepoint(tp).Names())
		if err != nil {
			return Side{}, err
		}
		s.Keys = append(s.Keys, tp)
		s.Values = append(s.Values, Sanitized(values))
	}
	return s, nil
}

// ProfileArrays builds, per metabolite row, the time profiles of two
// conditions ordered by ascending numeric time. Both conditions must be
// measured at the same timepoints.
func ProfileArrays(t *core.Table, meta *core.Metadata, condA, condB string) ([]Pair, error) {
	out := make([]Pair, 0, len(t.Rows))
	for i, row := range t.Rows {
		a, err := profileSide(t, i, meta, condA)
		if err != nil {
			return nil, err
		}
		b, err := profileSide(t, i, meta, condB)
		if err != nil {
			return nil, err
		}
		p := Pair{Metabolite: row, A: a, B: b}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
