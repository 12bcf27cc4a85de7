package core

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Precision is the number of decimals kept for every prepared value and result.
const Precision = 6

// MinimumToleratedFraction is the smallest fraction considered measured.
const MinimumToleratedFraction = 1e-4

// RoundFloat rounds a float to n decimal places. NaN and infinities pass through.
func RoundFloat(val float64, precision int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	rounded, err := stats.Round(val, precision)
	if err != nil {
		return val
	}
	return rounded
}

// RoundValues rounds a slice in place.
func RoundValues(values []float64, precision int) {
	for i, v := range values {
		values[i] = RoundFloat(v, precision)
	}
}

// IsotopologueAbundances converts isotopologue proportions (fractions summing
// to 1 per metabolite) into absolute values using each metabolite's total
// abundance. Samples missing in abundances yield NaN.
func IsotopologueAbundances(proportions, abundances *Table) (*Table, error) {
	idx, err := BuildIsotopologueIndex(proportions.Rows)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, len(proportions.Rows))
	for i := range values {
		values[i] = make([]float64, len(proportions.Columns))
	}

	for _, met := range idx.Metabolites() {
		total := abundances.Row(met)
		for _, iso := range idx.Members(met) {
			ri, _ := proportions.RowIndex(iso.Name)
			for j, col := range proportions.Columns {
				ci, ok := abundances.ColumnIndex(col)
				if total == nil || !ok {
					values[ri][j] = math.NaN()
					continue
				}
				values[ri][j] = proportions.Values[ri][j] * total[ci]
			}
		}
	}
	return NewTable(append([]string(nil), proportions.Rows...), append([]string(nil), proportions.Columns...), values)
}

// MeanEnrichments computes, per metabolite, the mean labeling degree
// sum(k * p_k) / n where p_k is the proportion of m+k and n the largest mass shift.
func MeanEnrichments(proportions *Table) (*Table, error) {
	idx, err := BuildIsotopologueIndex(proportions.Rows)
	if err != nil {
		return nil, err
	}

	metabolites := idx.Metabolites()
	values := make([][]float64, len(metabolites))
	for m, met := range metabolites {
		isos := idx.Members(met)
		n := float64(isos[len(isos)-1].MassShift)
		values[m] = make([]float64, len(proportions.Columns))
		for j := range proportions.Columns {
			if n == 0 {
				values[m][j] = 0
				continue
			}
			sum := 0.0
			for _, iso := range isos {
				ri, _ := proportions.RowIndex(iso.Name)
				sum += float64(iso.MassShift) * proportions.Values[ri][j]
			}
			values[m][j] = RoundFloat(sum/n, Precision)
		}
	}

	table, err := NewTable(metabolites, append([]string(nil), proportions.Columns...), values)
	if err != nil {
		return nil, fmt.Errorf("mean enrichment: %w", err)
	}
	return table, nil
}

// TotalMarked sums, per metabolite, the absolute values of every labeled
// isotopologue (m+0 left out). Missing values are skipped.
func TotalMarked(isotopologues *Table) (*Table, error) {
	idx, err := BuildIsotopologueIndex(isotopologues.Rows)
	if err != nil {
		return nil, err
	}

	metabolites := idx.Metabolites()
	values := make([][]float64, len(metabolites))
	for m, met := range metabolites {
		values[m] = make([]float64, len(isotopologues.Columns))
		for _, iso := range idx.Members(met) {
			if iso.MassShift == 0 {
				continue
			}
			ri, _ := isotopologues.RowIndex(iso.Name)
			for j, v := range isotopologues.Values[ri] {
				if !math.IsNaN(v) {
					values[m][j] += v
				}
			}
		}
	}
	return NewTable(metabolites, append([]string(nil), isotopologues.Columns...), values)
}

// SplitByMassShift returns one metabolite-level table per mass shift k,
// holding the m+k row of each metabolite that has one.
func SplitByMassShift(isotopologues *Table) (map[int]*Table, error) {
	idx, err := BuildIsotopologueIndex(isotopologues.Rows)
	if err != nil {
		return nil, err
	}

	rows := make(map[int][]string)
	values := make(map[int][][]float64)
	for _, met := range idx.Metabolites() {
		for _, iso := range idx.Members(met) {
			ri, _ := isotopologues.RowIndex(iso.Name)
			rows[iso.MassShift] = append(rows[iso.MassShift], met)
			values[iso.MassShift] = append(values[iso.MassShift], append([]float64(nil), isotopologues.Values[ri]...))
		}
	}

	out := make(map[int]*Table, len(rows))
	for k := range rows {
		t, err := NewTable(rows[k], append([]string(nil), isotopologues.Columns...), values[k])
		if err != nil {
			return nil, fmt.Errorf("m+%d: %w", k, err)
		}
		out[k] = t
	}
	return out, nil
}
