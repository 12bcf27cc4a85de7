package distfit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the number of histogram bins used to score candidates.
const DefaultBins = 200

// Restarts is the number of random restarts of each likelihood search.
const Restarts = 3

// DefaultSeed seeds the generator when none is configured.
const DefaultSeed = 123

// ErrNoFit is returned when no candidate produced a usable fit.
var ErrNoFit = errors.New("no distribution could be fitted")

// NewRand returns the seeded generator threaded through fitting calls.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Candidate records how one catalog entry scored.
type Candidate struct {
	Name   string
	Params Params
	SSE    float64
	Err    error
}

// Fit is the winning distribution.
type Fit struct {
	Distribution Distribution
	Params       Params
	SSE          float64
	Candidates   []Candidate
}

// CDF evaluates the fitted cumulative distribution.
func (f *Fit) CDF(x float64) float64 {
	return f.Distribution.CDF(x, f.Params)
}

// Fitter selects the candidate whose density best matches the data histogram.
type Fitter struct {
	Catalog Catalog
	Bins    int
}

// NewFitter returns a fitter over the default catalog.
func NewFitter() *Fitter {
	return &Fitter{Catalog: DefaultCatalog(), Bins: DefaultBins}
}

// BestFit fits every candidate and returns the one with the lowest positive
// sum of squared errors between its density and the histogram density.
func (f *Fitter) BestFit(data []float64, rng *rand.Rand) (*Fit, error) {
	finite := make([]float64, 0, len(data))
	for _, x := range data {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			finite = append(finite, x)
		}
	}
	if len(finite) < 2 {
		return nil, fmt.Errorf("%w: %d finite values", ErrNoFit, len(finite))
	}

	bins := f.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	centres, density, err := histogramDensity(finite, bins)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFit, err)
	}

	var best *Fit
	var candidates []Candidate
	for _, d := range f.Catalog {
		params, err := d.Fit(finite, rng)
		if err != nil {
			candidates = append(candidates, Candidate{Name: d.Name, SSE: math.NaN(), Err: err})
			continue
		}

		sse := 0.0
		for i, c := range centres {
			diff := d.PDF(c, params) - density[i]
			sse += diff * diff
		}
		candidates = append(candidates, Candidate{Name: d.Name, Params: params, SSE: sse})

		// Zero or negative error marks a degenerate fit
		if math.IsNaN(sse) || math.IsInf(sse, 0) || sse <= 0 {
			continue
		}
		if best == nil || sse < best.SSE {
			best = &Fit{Distribution: d, Params: params, SSE: sse}
		}
	}

	if best == nil {
		return nil, ErrNoFit
	}
	best.Candidates = candidates
	return best, nil
}

// histogramDensity returns bin centres and density-normalised counts.
func histogramDensity(data []float64, bins int) ([]float64, []float64, error) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if !(hi > lo) {
		return nil, nil, fmt.Errorf("%w: %v", errDegenerate, lo)
	}

	width := (hi - lo) / float64(bins)
	dividers := make([]float64, bins+1)
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	// the last bin is closed on the right
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	n := float64(len(sorted))
	centres := make([]float64, bins)
	density := make([]float64, bins)
	for i := range counts {
		centres[i] = (dividers[i] + lo + float64(i+1)*width) / 2
		density[i] = counts[i] / (n * width)
	}
	return centres, density, nil
}

// shapeInit gives the starting value of a positive shape parameter.
type shapeInit float64

func positive(v float64) shapeInit { return shapeInit(v) }

const likelihoodPenalty = 1e12

// maximumLikelihood returns a fitting procedure minimising the negative log
// likelihood over (shapes, loc, scale) with Nelder-Mead. Shapes and scale are
// searched on a log scale. With lower set, the support starts at loc, so loc
// starts below the sample minimum.
func maximumLikelihood(pdf func(float64, Params) float64, shapes []shapeInit, lower bool) func([]float64, *rand.Rand) (Params, error) {
	decode := func(theta []float64) Params {
		p := Params{Shape: make([]float64, len(shapes))}
		for i := range shapes {
			p.Shape[i] = math.Exp(theta[i])
		}
		p.Loc = theta[len(shapes)]
		p.Scale = math.Exp(theta[len(shapes)+1])
		return p
	}

	return func(data []float64, rng *rand.Rand) (Params, error) {
		mean, std := stat.PopMeanStdDev(data, nil)
		if !(std > 0) {
			return Params{}, errDegenerate
		}

		init := make([]float64, len(shapes)+2)
		for i, s := range shapes {
			init[i] = math.Log(float64(s))
		}
		init[len(shapes)] = mean
		if lower {
			init[len(shapes)] = floats.Min(data) - 0.5*std
		}
		init[len(shapes)+1] = math.Log(std)

		nll := func(theta []float64) float64 {
			p := decode(theta)
			sum := 0.0
			for _, x := range data {
				d := pdf(x, p)
				if !(d > 0) || math.IsInf(d, 0) {
					return likelihoodPenalty
				}
				sum -= math.Log(d)
			}
			return sum
		}

		problem := optimize.Problem{Func: nll}
		settings := &optimize.Settings{FuncEvaluations: 4000}

		bestX, bestF := init, nll(init)
		for r := 0; r <= Restarts; r++ {
			start := append([]float64(nil), init...)
			if r > 0 {
				for i := range start {
					start[i] += 0.5 * rng.NormFloat64()
				}
			}
			res, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
			if res == nil || (err != nil && res.F >= bestF) {
				continue
			}
			if res.F < bestF {
				bestX, bestF = res.X, res.F
			}
		}

		if bestF >= likelihoodPenalty {
			return Params{}, errors.New("likelihood search did not reach the sample support")
		}
		return decode(bestX), nil
	}
}
