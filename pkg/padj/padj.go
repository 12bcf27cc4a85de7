// Package padj adjusts p-values for multiple testing.
package padj

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Method is a multiple-testing correction procedure.
type Method int

const (
	Bonferroni Method = iota
	Sidak
	HolmSidak
	Holm
	SimesHochberg
	Hommel
	FdrBH
	FdrBY
	FdrTSBH
	FdrTSBKY
)

var methodNames = []string{
	Bonferroni:    "bonferroni",
	Sidak:         "sidak",
	HolmSidak:     "holm-sidak",
	Holm:          "holm",
	SimesHochberg: "simes-hochberg",
	Hommel:        "hommel",
	FdrBH:         "fdr_bh",
	FdrBY:         "fdr_by",
	FdrTSBH:       "fdr_tsbh",
	FdrTSBKY:      "fdr_tsbky",
}

// DefaultAlpha is the family-wise error rate used by the two-stage procedures.
const DefaultAlpha = 0.05

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
	return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedMethod, s)
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

// Adjust corrects the finite p-values with the given method. NaN entries are
// left out of the correction and returned as NaN at their original position.
func Adjust(pvalues []float64, method Method, alpha float64) []float64 {
	out := make([]float64, len(pvalues))
	var finite []float64
	var positions []int
	for i, p := range pvalues {
		if math.IsNaN(p) {
			out[i] = math.NaN()
			continue
		}
		finite = append(finite, p)
		positions = append(positions, i)
	}
	if len(finite) == 0 {
		return out
	}

	adjusted := adjustSorted(finite, method, alpha)
	for k, i := range positions {
		out[i] = adjusted[k]
	}
	return out
}

// adjustSorted sorts the p-values, applies the method, and restores order.
func adjustSorted(pvalues []float64, method Method, alpha float64) []float64 {
	n := len(pvalues)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvalues[order[a]] < pvalues[order[b]] })

	sorted := make([]float64, n)
	for i, o := range order {
		sorted[i] = pvalues[o]
	}

	var corrected []float64
	switch method {
	case Bonferroni:
		corrected = bonferroni(sorted)
	case Sidak:
		corrected = sidak(sorted)
	case HolmSidak:
		corrected = holmSidak(sorted)
	case Holm:
		corrected = holm(sorted)
	case SimesHochberg:
		corrected = simesHochberg(sorted)
	case Hommel:
		corrected = hommel(sorted)
	case FdrBH:
		corrected = benjaminiHochberg(sorted, 1)
	case FdrBY:
		cm := 0.0
		for i := 1; i <= n; i++ {
			cm += 1 / float64(i)
		}
		corrected = benjaminiHochberg(sorted, cm)
	case FdrTSBH:
		corrected = twoStage(sorted, alpha, false)
	case FdrTSBKY:
		corrected = twoStage(sorted, alpha, true)
	default:
		corrected = sorted
	}

	out := make([]float64, n)
	for i, o := range order {
		out[o] = math.Min(1, corrected[i])
	}
	return out
}

func bonferroni(p []float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * n
	}
	return out
}

func sidak(p []float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = -math.Expm1(n * math.Log1p(-v))
	}
	return out
}

func holmSidak(p []float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = -math.Expm1(float64(n-i) * math.Log1p(-v))
	}
	cumulativeMax(out)
	return out
}

func holm(p []float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = math.Min(1, v*float64(n-i))
	}
	cumulativeMax(out)
	return out
}

func simesHochberg(p []float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = v * float64(n-i)
	}
	reverseCumulativeMin(out)
	return out
}

// hommel follows the closed-testing construction over sorted p-values.
func hommel(p []float64) []float64 {
	n := len(p)
	a := append([]float64(nil), p...)
	for m := n; m >= 2; m-- {
		cim := math.Inf(1)
		for k := 0; k < m; k++ {
			cim = math.Min(cim, float64(m)*p[n-m+k]/float64(k+1))
		}
		for i := n - m; i < n; i++ {
			a[i] = math.Max(a[i], cim)
		}
		for i := 0; i < n-m; i++ {
			a[i] = math.Max(a[i], math.Min(float64(m)*p[i], cim))
		}
	}
	return a
}

func benjaminiHochberg(p []float64, cm float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * n * cm / float64(i+1)
	}
	reverseCumulativeMin(out)
	for i := range out {
		out[i] = math.Min(1, out[i])
	}
	return out
}

// twoStage estimates the number of true null hypotheses from a first BH pass
// and reruns BH at the adjusted level. With bky the first stage runs at
// alpha/(1+alpha).
func twoStage(p []float64, alpha float64, bky bool) []float64 {
	n := len(p)
	fact := 1.0
	if bky {
		fact = 1 + alpha
	}
	alphaPrime := alpha / fact

	first := benjaminiHochberg(p, 1)
	rejected := 0
	for _, v := range first {
		if v <= alphaPrime {
			rejected++
		}
	}

	out := make([]float64, n)
	if rejected == 0 || rejected == n {
		for i, v := range first {
			out[i] = v * fact
		}
		return out
	}

	ntrue := float64(n - rejected)
	for i, v := range first {
		out[i] = v * ntrue / float64(n)
		if bky {
			out[i] *= 1 + alpha
		}
	}
	return out
}

func cumulativeMax(v []float64) {
	for i := 1; i < len(v); i++ {
		v[i] = math.Max(v[i], v[i-1])
	}
}

func reverseCumulativeMin(v []float64) {
	for i := len(v) - 2; i >= 0; i-- {
		v[i] = math.Min(v[i], v[i+1])
	}
}
