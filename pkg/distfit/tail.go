package distfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Tail selects how p-values are read from the fitted distribution.
type Tail int

const (
	TailAuto Tail = iota
	TailRight
	TailTwoSided
)

var tailNames = map[Tail]string{
	TailAuto:     "auto",
	TailRight:    "right-tailed",
	TailTwoSided: "two-sided",
}

func (t Tail) String() string {
	return tailNames[t]
}

// ParseTail maps a tail keyword to a Tail.
func ParseTail(s string) (Tail, error) {
	for t, name := range tailNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unsupported tail policy %q", s)
}

// UnmarshalText lets Tail be decoded from configuration.
func (t *Tail) UnmarshalText(text []byte) error {
	parsed, err := ParseTail(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PValues reads a p-value for each z from the fitted distribution. With
// TailAuto both readings are computed and the one reaching the smaller
// minimum p-value is kept; ties keep two-sided. The tail used is returned.
func PValues(fit *Fit, z []float64, tail Tail) ([]float64, Tail) {
	switch tail {
	case TailRight:
		return pvalues(fit, z, rightTailed), TailRight
	case TailTwoSided:
		return pvalues(fit, z, twoSided), TailTwoSided
	}

	right := pvalues(fit, z, rightTailed)
	two := pvalues(fit, z, twoSided)
	if finiteMin(right) < finiteMin(two) {
		return right, TailRight
	}
	return two, TailTwoSided
}

func rightTailed(fit *Fit, z float64) float64 {
	return 1 - fit.CDF(z)
}

func twoSided(fit *Fit, z float64) float64 {
	return math.Min(1, 2*(1-fit.CDF(math.Abs(z))))
}

func pvalues(fit *Fit, z []float64, read func(*Fit, float64) float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = read(fit, v)
	}
	return out
}

func finiteMin(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if !math.IsNaN(v) && v < m {
			m = v
		}
	}
	return m
}

// ZScores standardises the finite values with the population standard
// deviation. Non-finite entries and degenerate samples give NaN.
func ZScores(values []float64) []float64 {
	var finite []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	out := make([]float64, len(values))
	if len(finite) < 2 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	mean, std := stat.PopMeanStdDev(finite, nil)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || !(std > 0) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}
