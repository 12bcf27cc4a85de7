// Package distfit fits candidate continuous distributions to a sample and
// derives p-values from the best fitting one.
package distfit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Params are the fitted parameters of a distribution.
type Params struct {
	Shape []float64
	Loc   float64
	Scale float64
}

func (p Params) String() string {
	return fmt.Sprintf("shape=%v loc=%g scale=%g", p.Shape, p.Loc, p.Scale)
}

// Distribution is a catalog entry: a name, a fitting procedure and the
// density and cumulative functions of the fitted form.
type Distribution struct {
	Name string
	Fit  func(data []float64, rng *rand.Rand) (Params, error)
	PDF  func(x float64, p Params) float64
	CDF  func(x float64, p Params) float64
}

// Catalog is an ordered set of candidate distributions.
type Catalog []Distribution

// ErrUnknownDistribution is returned when selecting a name not in the catalog.
var ErrUnknownDistribution = errors.New("unknown distribution")

// Names lists the catalog entries in order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, d := range c {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the entry with the given name.
func (c Catalog) Lookup(name string) (Distribution, bool) {
	for _, d := range c {
		if d.Name == name {
			return d, true
		}
	}
	return Distribution{}, false
}

// Select returns a reduced catalog holding only the named entries, in the given order.
func (c Catalog) Select(names []string) (Catalog, error) {
	out := make(Catalog, 0, len(names))
	for _, n := range names {
		d, ok := c.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDistribution, n)
		}
		out = append(out, d)
	}
	return out, nil
}

// standard is a distribution in standard form, before location and scale.
type standard interface {
	Prob(x float64) float64
	CDF(x float64) float64
}

// locScale wraps a standard form into a location-scale family.
func locScale(name string, form func(shape []float64) standard, fit func([]float64, *rand.Rand) (Params, error)) Distribution {
	return Distribution{
		Name: name,
		Fit:  fit,
		PDF: func(x float64, p Params) float64 {
			return form(p.Shape).Prob((x-p.Loc)/p.Scale) / p.Scale
		},
		CDF: func(x float64, p Params) float64 {
			return form(p.Shape).CDF((x - p.Loc) / p.Scale)
		},
	}
}

// DefaultCatalog returns every supported distribution.
func DefaultCatalog() Catalog {
	norm := func([]float64) standard { return distuv.Normal{Mu: 0, Sigma: 1} }
	laplace := func([]float64) standard { return distuv.Laplace{Mu: 0, Scale: 1} }
	logistic := func([]float64) standard { return distuv.Logistic{Mu: 0, S: 1} }
	gumbelR := func([]float64) standard { return distuv.GumbelRight{Mu: 0, Beta: 1} }
	gumbelL := func([]float64) standard { return mirrored{distuv.GumbelRight{Mu: 0, Beta: 1}} }
	cauchy := func([]float64) standard { return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 1} }
	studentT := func(s []float64) standard { return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: s[0]} }
	hypsecant := func([]float64) standard { return hyperbolicSecant{} }
	gennorm := func(s []float64) standard { return generalizedNormal{beta: s[0]} }
	dgamma := func(s []float64) standard { return doubleGamma{a: s[0]} }
	uniform := func([]float64) standard { return distuv.Uniform{Min: 0, Max: 1} }
	expon := func([]float64) standard { return distuv.Exponential{Rate: 1} }
	gamma := func(s []float64) standard { return distuv.Gamma{Alpha: s[0], Beta: 1} }
	lognorm := func(s []float64) standard { return halfLine{distuv.LogNormal{Mu: 0, Sigma: s[0]}} }
	weibull := func(s []float64) standard { return distuv.Weibull{K: s[0], Lambda: 1} }

	c := Catalog{
		locScale("norm", norm, fitNormal),
		locScale("laplace", laplace, fitLaplace),
		locScale("uniform", uniform, fitUniform),
		locScale("expon", expon, fitExponential),
	}
	mle := []struct {
		name   string
		form   func([]float64) standard
		shapes []shapeInit
		lower  bool
	}{
		{name: "logistic", form: logistic},
		{name: "gumbel_r", form: gumbelR},
		{name: "gumbel_l", form: gumbelL},
		{name: "cauchy", form: cauchy},
		{name: "hypsecant", form: hypsecant},
		{name: "t", form: studentT, shapes: []shapeInit{positive(5)}},
		{name: "gennorm", form: gennorm, shapes: []shapeInit{positive(2)}},
		{name: "dgamma", form: dgamma, shapes: []shapeInit{positive(1)}},
		{name: "gamma", form: gamma, shapes: []shapeInit{positive(2)}, lower: true},
		{name: "lognorm", form: lognorm, shapes: []shapeInit{positive(0.5)}, lower: true},
		{name: "weibull_min", form: weibull, shapes: []shapeInit{positive(1.5)}, lower: true},
	}
	for _, m := range mle {
		d := locScale(m.name, m.form, nil)
		d.Fit = maximumLikelihood(d.PDF, m.shapes, m.lower)
		c = append(c, d)
	}

	sort.SliceStable(c, func(i, j int) bool { return c[i].Name < c[j].Name })
	return c
}

// mirrored reflects a distribution around 0.
type mirrored struct{ s standard }

func (m mirrored) Prob(x float64) float64 { return m.s.Prob(-x) }
func (m mirrored) CDF(x float64) float64  { return 1 - m.s.CDF(-x) }

// halfLine restricts a distribution to positive values.
type halfLine struct{ s standard }

func (h halfLine) Prob(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return h.s.Prob(x)
}

func (h halfLine) CDF(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return h.s.CDF(x)
}

// hyperbolicSecant is the standard hyperbolic secant distribution.
type hyperbolicSecant struct{}

func (hyperbolicSecant) Prob(x float64) float64 { return 1 / (math.Pi * math.Cosh(x)) }
func (hyperbolicSecant) CDF(x float64) float64  { return 2 / math.Pi * math.Atan(math.Exp(x)) }

// generalizedNormal is the standard generalized normal with shape beta.
type generalizedNormal struct{ beta float64 }

func (g generalizedNormal) Prob(x float64) float64 {
	lg, _ := math.Lgamma(1 / g.beta)
	return g.beta / 2 * math.Exp(-math.Pow(math.Abs(x), g.beta)-lg)
}

func (g generalizedNormal) CDF(x float64) float64 {
	half := mathext.GammaIncReg(1/g.beta, math.Pow(math.Abs(x), g.beta)) / 2
	if x < 0 {
		return 0.5 - half
	}
	return 0.5 + half
}

// doubleGamma is the standard double gamma with shape a.
type doubleGamma struct{ a float64 }

func (d doubleGamma) Prob(x float64) float64 {
	lg, _ := math.Lgamma(d.a)
	ax := math.Abs(x)
	if ax == 0 {
		switch {
		case d.a == 1:
			return 0.5
		case d.a > 1:
			return 0
		default:
			return math.Inf(1)
		}
	}
	return math.Exp((d.a-1)*math.Log(ax)-ax-lg) / 2
}

func (d doubleGamma) CDF(x float64) float64 {
	half := mathext.GammaIncReg(d.a, math.Abs(x)) / 2
	if x < 0 {
		return 0.5 - half
	}
	return 0.5 + half
}

var errDegenerate = errors.New("sample has no spread")

func fitNormal(data []float64, _ *rand.Rand) (Params, error) {
	mean, std := stat.PopMeanStdDev(data, nil)
	if !(std > 0) {
		return Params{}, errDegenerate
	}
	return Params{Loc: mean, Scale: std}, nil
}

func fitLaplace(data []float64, _ *rand.Rand) (Params, error) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if n := len(sorted); n%2 == 0 && n > 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	dev := 0.0
	for _, x := range data {
		dev += math.Abs(x - median)
	}
	dev /= float64(len(data))
	if !(dev > 0) {
		return Params{}, errDegenerate
	}
	return Params{Loc: median, Scale: dev}, nil
}

func fitUniform(data []float64, _ *rand.Rand) (Params, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range data {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if !(hi > lo) {
		return Params{}, errDegenerate
	}
	return Params{Loc: lo, Scale: hi - lo}, nil
}

func fitExponential(data []float64, _ *rand.Rand) (Params, error) {
	lo := math.Inf(1)
	for _, x := range data {
		lo = math.Min(lo, x)
	}
	scale := stat.Mean(data, nil) - lo
	if !(scale > 0) {
		return Params{}, errDegenerate
	}
	return Params{Loc: lo, Scale: scale}, nil
}
