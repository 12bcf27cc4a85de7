// Package bivariate correlates the geometric-mean arrays of two sample
// groups, per metabolite.
package bivariate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/rank"
)

// Method is a correlation method.
type Method int

const (
	Pearson Method = iota
	Spearman
)

var methodNames = []string{
	Pearson:  "pearson",
	Spearman: "spearman",
}

func (m Method) String() string {
	if int(m) < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod maps a method name to a Method.
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: correlation %q", core.ErrUnsupportedTest, s)
}

// UnmarshalText lets Method be decoded from configuration.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MinLength is the shortest array a correlation is computed on.
const MinLength = 3

// Correlate returns the correlation coefficient of x and y and its two-sided
// p-value from a t distribution with n-2 degrees of freedom. Both are NaN when
// the arrays differ in length, are shorter than MinLength, hold a NaN, or
// when either has zero variance.
func Correlate(method Method, x, y []float64) (r, p float64) {
	n := len(x)
	if n != len(y) || n < MinLength {
		return math.NaN(), math.NaN()
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return math.NaN(), math.NaN()
		}
	}

	if method == Spearman {
		x, _ = rank.Average(x)
		y, _ = rank.Average(y)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN(), math.NaN()
	}

	r = stat.Correlation(x, y, nil)
	r = math.Max(-1, math.Min(1, r))
	if math.Abs(r) == 1 {
		return r, 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return r, math.Min(1, 2*dist.Survival(math.Abs(t)))
}
