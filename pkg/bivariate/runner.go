package bivariate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/gmean"
	"github.com/ChrisMcGann/isostat/pkg/padj"
)

// Array is a geometric-mean array, written as a bracketed list.
type Array []float64

// MarshalCSV formats the array for result tables.
func (a Array) MarshalCSV() (string, error) {
	parts := make([]string, len(a))
	for i, v := range a {
		if math.IsNaN(v) {
			parts[i] = "nan"
			continue
		}
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

// String is the same text as MarshalCSV, for the SQLite store.
func (a Array) String() string {
	s, _ := a.MarshalCSV()
	return s
}

// Result is one row of a bivariate result table.
type Result struct {
	Metabolite  string  `csv:"metabolite"`
	GmeanA      Array   `csv:"gmean_arr_1"`
	GmeanB      Array   `csv:"gmean_arr_2"`
	Coefficient float64 `csv:"correlation_coefficient"`
	PValue      float64 `csv:"pvalue"`
	Padj        float64 `csv:"padj"`
	Compartment string  `csv:"compartment"`
}

// Runner holds bivariate test configuration
type Runner struct {
	Method     Method
	Correction padj.Method
	Alpha      float64
}

// NewRunner returns a runner using the default alpha.
func NewRunner(method Method, correction padj.Method) *Runner {
	return &Runner{Method: method, Correction: correction, Alpha: padj.DefaultAlpha}
}

// Run correlates every pair and corrects the p-values across the batch.
// A pair whose sides are misaligned fails the whole batch.
func (r *Runner) Run(pairs []gmean.Pair, compartment string) ([]Result, error) {
	out := make([]Result, len(pairs))
	pvalues := make([]float64, len(pairs))
	for i, p := range pairs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		coef, pv := Correlate(r.Method, p.A.Values, p.B.Values)
		out[i] = Result{
			Metabolite:  p.Metabolite,
			GmeanA:      Array(p.A.Values),
			GmeanB:      Array(p.B.Values),
			Coefficient: coef,
			PValue:      pv,
			Compartment: compartment,
		}
		pvalues[i] = pv
	}

	adjusted := padj.Adjust(pvalues, r.Correction, r.Alpha)
	for i := range out {
		out[i].Coefficient = core.RoundFloat(out[i].Coefficient, core.Precision)
		out[i].PValue = core.RoundFloat(out[i].PValue, core.Precision)
		out[i].Padj = core.RoundFloat(adjusted[i], core.Precision)
	}
	return out, nil
}

// Unit is one batch of arrays sharing an output table.
type Unit struct {
	Behavior   comparison.Behavior
	Comparison string
	// Key is the timepoint or condition the MDV arrays were taken at
	Key   string
	Pairs []gmean.Pair
}

// Units builds the batches of one behavior over the selected conditions.
// MDV behaviors need an isotopologue-level table and its index; time
// profiles use a metabolite-level table and ignore idx.
func Units(behavior comparison.Behavior, t *core.Table, idx *core.IsotopologueIndex, meta *core.Metadata, sel *comparison.Selection) ([]Unit, error) {
	cmps := sel.Comparisons

	var units []Unit
	switch behavior {
	case comparison.ConditionsMDV:
		for _, tp := range meta.Timepoints() {
			for _, c := range cmps {
				colsA := meta.WithConditionAndTimepoint(c.Interest.Condition, tp).Names()
				colsB := meta.WithConditionAndTimepoint(c.Baseline.Condition, tp).Names()
				if len(colsA) == 0 || len(colsB) == 0 {
					continue
				}
				pairs, err := gmean.MDVArrays(t, idx, colsA, colsB)
				if err != nil {
					return nil, fmt.Errorf("MDV %s at %s: %w", c, tp, err)
				}
				units = append(units, Unit{Behavior: behavior, Comparison: c.String(), Key: tp, Pairs: pairs})
			}
		}

	case comparison.TimepointsMDV:
		for _, cond := range sel.Conditions {
			sub := meta.WithCondition(cond)
			steps, err := comparison.Timepoints(sub)
			if err != nil {
				return nil, fmt.Errorf("condition %s: %w", cond, err)
			}
			for _, step := range steps {
				pairs, err := gmean.MDVArrays(t, idx, sub.WithTimepoint(step.Later).Names(), sub.WithTimepoint(step.Earlier).Names())
				if err != nil {
					return nil, fmt.Errorf("MDV %s in %s: %w", step, cond, err)
				}
				units = append(units, Unit{Behavior: behavior, Comparison: step.String(), Key: cond, Pairs: pairs})
			}
		}

	case comparison.ConditionsTimeProfiles:
		for _, c := range cmps {
			pairs, err := gmean.ProfileArrays(t, meta, c.Interest.Condition, c.Baseline.Condition)
			if err != nil {
				return nil, fmt.Errorf("time profile %s: %w", c, err)
			}
			units = append(units, Unit{Behavior: behavior, Comparison: c.String(), Pairs: pairs})
		}

	default:
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedBehavior, behavior)
	}
	return units, nil
}
