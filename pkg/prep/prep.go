// Package prep provides value preparation applied to quantification tables
// before statistical testing.
package prep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Epsilon is the fixed placeholder used by the "epsilon" policy. It stays
// visible after rounding to core.Precision decimals.
const Epsilon = 1e-5

// FractionCeiling caps placeholders for fraction tables below
// core.MinimumToleratedFraction.
const FractionCeiling = 1e-5

type imputeMode int

const (
	imputeNone imputeMode = iota
	imputeMin
	imputeFixed
)

// ImputePolicy decides which value replaces exact zeros.
type ImputePolicy struct {
	mode    imputeMode
	divisor float64
	value   float64
	raw     string
}

// ParseImputePolicy accepts "min", "min/N", "epsilon", a numeric literal, or
// an empty string meaning no imputation.
func ParseImputePolicy(s string) (ImputePolicy, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "none":
		return ImputePolicy{mode: imputeNone, raw: s}, nil
	case s == "epsilon":
		return ImputePolicy{mode: imputeFixed, value: Epsilon, raw: s}, nil
	case s == "min":
		return ImputePolicy{mode: imputeMin, divisor: 1, raw: s}, nil
	case strings.HasPrefix(s, "min/"):
		n, err := strconv.ParseFloat(strings.TrimPrefix(s, "min/"), 64)
		if err != nil || n <= 0 {
			return ImputePolicy{}, fmt.Errorf("invalid imputation divisor in %q", s)
		}
		return ImputePolicy{mode: imputeMin, divisor: n, raw: s}, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return ImputePolicy{}, fmt.Errorf("invalid imputation policy %q", s)
	}
	return ImputePolicy{mode: imputeFixed, value: v, raw: s}, nil
}

// UnmarshalText lets ImputePolicy be decoded from configuration.
func (p *ImputePolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseImputePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p ImputePolicy) String() string {
	if p.raw == "" {
		return "none"
	}
	return p.raw
}

// Placeholder computes the value that replaces zeros in the table.
func (p ImputePolicy) Placeholder(t *core.Table, kind core.FileKind) (float64, bool) {
	var v float64
	switch p.mode {
	case imputeNone:
		return 0, false
	case imputeFixed:
		v = p.value
	case imputeMin:
		v = minPositive(t)
		if math.IsNaN(v) {
			v = Epsilon
		}
		v /= p.divisor
	}

	if kind.IsFraction() && v > FractionCeiling {
		v = FractionCeiling
	}
	return v, true
}

func minPositive(t *core.Table) float64 {
	m := math.NaN()
	for _, row := range t.Values {
		for _, v := range row {
			if v > 0 && (math.IsNaN(m) || v < m) {
				m = v
			}
		}
	}
	return m
}

// Config holds value preparation configuration
type Config struct {
	Kind   core.FileKind
	Impute ImputePolicy
}

// Apply returns a prepared copy of the table: zero imputation, row reduction
// for abundances, then rounding.
func (c *Config) Apply(t *core.Table) (*core.Table, error) {
	out := t.Clone()

	// Impute zeros
	if v, ok := c.Impute.Placeholder(out, c.Kind); ok {
		imputeZeros(out, v)
	}

	// Reduce rows
	if c.Kind == core.Abundances {
		reduceRows(out)
	}

	// Round everything
	for _, row := range out.Values {
		core.RoundValues(row, core.Precision)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("prepared %s table: %w", c.Kind, err)
	}
	return out, nil
}

// imputeZeros replaces exact zeros, leaving missing values untouched
func imputeZeros(t *core.Table, placeholder float64) {
	for _, row := range t.Values {
		for j, v := range row {
			if v == 0 {
				row[j] = placeholder
			}
		}
	}
}

// reduceRows divides each row by its sample standard deviation. Rows whose
// deviation is zero or undefined become missing.
func reduceRows(t *core.Table) {
	for _, row := range t.Values {
		present := core.Present(row)
		sd := math.NaN()
		if len(present) >= 2 {
			sd, _ = stats.StandardDeviationSample(present)
		}
		for j, v := range row {
			if math.IsNaN(sd) || sd == 0 {
				row[j] = math.NaN()
				continue
			}
			row[j] = v / sd
		}
	}
}

// Sufficiency is the outcome of the NaN-count filter.
type Sufficiency struct {
	Sufficient   []string
	Insufficient []string
	// Missing counts per row key, for each group
	MissingA map[string]int
	MissingB map[string]int
}

// MinPresent is the number of present values each group needs.
const MinPresent = 2

// SplitBySufficiency splits row keys by whether both groups hold at least
// MinPresent non-missing values.
func SplitBySufficiency(t *core.Table, groupA, groupB []string) (*Sufficiency, error) {
	s := &Sufficiency{
		MissingA: make(map[string]int, len(t.Rows)),
		MissingB: make(map[string]int, len(t.Rows)),
	}
	for i, row := range t.Rows {
		a, err := t.RowValues(i, groupA)
		if err != nil {
			return nil, err
		}
		b, err := t.RowValues(i, groupB)
		if err != nil {
			return nil, err
		}
		s.MissingA[row] = core.CountMissing(a)
		s.MissingB[row] = core.CountMissing(b)

		if len(a)-s.MissingA[row] >= MinPresent && len(b)-s.MissingB[row] >= MinPresent {
			s.Sufficient = append(s.Sufficient, row)
		} else {
			s.Insufficient = append(s.Insufficient, row)
		}
	}
	return s, nil
}
