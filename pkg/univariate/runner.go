package univariate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/distfit"
	"github.com/ChrisMcGann/isostat/pkg/gmean"
	"github.com/ChrisMcGann/isostat/pkg/padj"
	"github.com/ChrisMcGann/isostat/pkg/prep"
)

// Result is one row of a differential result table, in canonical column
// order.
type Result struct {
	Metabolite       string  `csv:"metabolite"`
	Distance         float64 `csv:"distance"`
	Span             float64 `csv:"span_allsamples"`
	DistanceOverSpan float64 `csv:"distance/span"`
	Stat             float64 `csv:"stat"`
	PValue           float64 `csv:"pvalue"`
	Padj             float64 `csv:"padj"`
	Log2FC           float64 `csv:"log2FC"`
	FC               float64 `csv:"FC"`
	MissingA         int     `csv:"count_nan_samples_group1"`
	MissingB         int     `csv:"count_nan_samples_group2"`
	Compartment      string  `csv:"compartment"`
}

// Outcome is the output of one runner pass.
type Outcome struct {
	Results []Result
	// Tested counts the rows that passed the sufficiency filter
	Tested int
	// Fit and Tail are set by the disfit test
	Fit  *distfit.Fit
	Tail distfit.Tail
}

// Runner holds univariate test configuration
type Runner struct {
	Test       Test
	Correction padj.Method
	Alpha      float64
	Fitter     *distfit.Fitter
	Tail       distfit.Tail
	Rand       *rand.Rand
}

// NewRunner returns a runner with the default fitter, alpha and seed.
func NewRunner(test Test, correction padj.Method) *Runner {
	return &Runner{
		Test:       test,
		Correction: correction,
		Alpha:      padj.DefaultAlpha,
		Fitter:     distfit.NewFitter(),
		Tail:       distfit.TailAuto,
		Rand:       distfit.NewRand(distfit.DefaultSeed),
	}
}

// Run compares the interest columns against the baseline columns for every
// row of the table. Rows lacking enough present values in either group keep
// their metrics but get NaN statistics and stay out of the correction.
func (r *Runner) Run(t *core.Table, interest, baseline []string, compartment string) (*Outcome, error) {
	suff, err := prep.SplitBySufficiency(t, interest, baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to split rows by sufficiency: %w", err)
	}
	sufficient := make(map[string]bool, len(suff.Sufficient))
	for _, row := range suff.Sufficient {
		sufficient[row] = true
	}

	out := &Outcome{Results: make([]Result, len(t.Rows)), Tested: len(suff.Sufficient)}
	groupsA := make([][]float64, len(t.Rows))
	groupsB := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		a, err := t.RowValues(i, interest)
		if err != nil {
			return nil, err
		}
		b, err := t.RowValues(i, baseline)
		if err != nil {
			return nil, err
		}
		groupsA[i], groupsB[i] = a, b

		m := ComputeMetrics(a, b)
		out.Results[i] = Result{
			Metabolite:       row,
			Distance:         m.Distance,
			Span:             m.Span,
			DistanceOverSpan: m.DistanceOverSpan,
			Stat:             math.NaN(),
			PValue:           math.NaN(),
			Padj:             math.NaN(),
			Log2FC:           m.Log2FC,
			FC:               m.FC,
			MissingA:         m.MissingA,
			MissingB:         m.MissingB,
			Compartment:      compartment,
		}
	}

	rng := r.Rand
	if rng == nil {
		rng = distfit.NewRand(distfit.DefaultSeed)
	}

	switch {
	case r.Test == NoTest:
		return out, nil
	case r.Test == DistFit:
		if err := r.fitNull(out, groupsA, groupsB, sufficient, t.Rows, rng); err != nil {
			return nil, err
		}
	default:
		for i, row := range t.Rows {
			if !sufficient[row] {
				continue
			}
			s, p := Compare(r.Test, groupsA[i], groupsB[i], rng)
			out.Results[i].Stat = s
			out.Results[i].PValue = p
		}
	}

	pvalues := make([]float64, len(out.Results))
	for i := range out.Results {
		pvalues[i] = out.Results[i].PValue
	}
	adjusted := padj.Adjust(pvalues, r.Correction, r.Alpha)
	for i := range out.Results {
		res := &out.Results[i]
		res.Padj = core.RoundFloat(adjusted[i], core.Precision)
		res.Stat = core.RoundFloat(res.Stat, core.Precision)
		res.PValue = core.RoundFloat(res.PValue, core.Precision)
	}
	return out, nil
}

// fitNull scores every sufficient row by the z-scored ratio of geometric
// means and reads p-values from the distribution best fitted to those scores.
// When no distribution fits, p-values stay NaN.
func (r *Runner) fitNull(out *Outcome, groupsA, groupsB [][]float64, sufficient map[string]bool, rows []string, rng *rand.Rand) error {
	ratios := make([]float64, len(rows))
	for i, row := range rows {
		ratios[i] = math.NaN()
		if !sufficient[row] {
			continue
		}
		a, b := gmean.Sanitized(groupsA[i]), gmean.Sanitized(groupsB[i])
		if b != 0 {
			ratios[i] = a / b
		}
	}

	z := distfit.ZScores(ratios)
	for i := range out.Results {
		out.Results[i].Stat = z[i]
	}

	fitter := r.Fitter
	if fitter == nil {
		fitter = distfit.NewFitter()
	}
	fit, err := fitter.BestFit(z, rng)
	if errors.Is(err, distfit.ErrNoFit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fit null distribution: %w", err)
	}

	pvalues, tail := distfit.PValues(fit, z, r.Tail)
	for i := range out.Results {
		out.Results[i].PValue = pvalues[i]
	}
	out.Fit, out.Tail = fit, tail
	return nil
}
