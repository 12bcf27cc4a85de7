package prep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

var nan = math.NaN()

func TestParseImputePolicy(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "min"},
		{in: "min/2"},
		{in: "epsilon"},
		{in: "0.0001"},
		{in: ""},
		{in: "min/0", wantErr: true},
		{in: "min/x", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "smallest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseImputePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlaceholder(t *testing.T) {
	tbl, err := core.NewTable([]string{"a", "b"}, []string{"s1", "s2"}, [][]float64{{0, 40}, {8, nan}})
	require.NoError(t, err)

	min, _ := ParseImputePolicy("min")
	v, ok := min.Placeholder(tbl, core.Abundances)
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)

	half, _ := ParseImputePolicy("min/2")
	v, _ = half.Placeholder(tbl, core.Abundances)
	assert.Equal(t, 4.0, v)

	// fractions are capped below the tolerated fraction
	v, _ = min.Placeholder(tbl, core.IsotopologueProportions)
	assert.Less(t, v, core.MinimumToleratedFraction)

	none, _ := ParseImputePolicy("")
	_, ok = none.Placeholder(tbl, core.Abundances)
	assert.False(t, ok)
}

func TestApplyImputesOnlyZeros(t *testing.T) {
	tbl, _ := core.NewTable([]string{"Cit_m+0", "Cit_m+1"}, []string{"s1", "s2", "s3"},
		[][]float64{{0, 0.5, nan}, {1, 0.5, 0.3}})
	policy, _ := ParseImputePolicy("epsilon")
	c := &Config{Kind: core.IsotopologueProportions, Impute: policy}

	out, err := c.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, Epsilon, out.Row("Cit_m+0")[0])
	assert.True(t, math.IsNaN(out.Row("Cit_m+0")[2]))
	assert.Equal(t, 0.5, out.Row("Cit_m+1")[1])

	// input untouched
	assert.Equal(t, 0.0, tbl.Row("Cit_m+0")[0])
}

func TestApplyReducesAbundanceRows(t *testing.T) {
	tbl, _ := core.NewTable([]string{"Cit", "Flat", "Lone"}, []string{"s1", "s2", "s3"},
		[][]float64{{2, 4, 6}, {5, 5, 5}, {3, nan, nan}})
	c := &Config{Kind: core.Abundances}

	out, err := c.Apply(tbl)
	require.NoError(t, err)

	// sample sd of 2,4,6 is 2
	assert.Equal(t, []float64{1, 2, 3}, out.Row("Cit"))
	for _, v := range out.Row("Flat") {
		assert.True(t, math.IsNaN(v))
	}
	assert.True(t, math.IsNaN(out.Row("Lone")[0]))
}

func TestApplyKeepsFractionScale(t *testing.T) {
	tbl, _ := core.NewTable([]string{"Cit"}, []string{"s1", "s2"}, [][]float64{{0.1234567, 0.2}})
	c := &Config{Kind: core.MeanEnrichment}

	out, err := c.Apply(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.123457, 0.2}, out.Row("Cit"))
}

func TestSplitBySufficiency(t *testing.T) {
	tbl, _ := core.NewTable(
		[]string{"ok1", "ok2", "badA", "badB"},
		[]string{"a1", "a2", "a3", "b1", "b2", "b3"},
		[][]float64{
			{1, 2, 3, 4, 5, 6},
			{1, nan, 3, nan, 5, 6},
			{1, nan, nan, 4, 5, 6},
			{1, 2, 3, nan, nan, 6},
		})

	s, err := SplitBySufficiency(tbl, []string{"a1", "a2", "a3"}, []string{"b1", "b2", "b3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok1", "ok2"}, s.Sufficient)
	assert.Equal(t, []string{"badA", "badB"}, s.Insufficient)
	assert.Equal(t, 2, s.MissingA["badA"])
	assert.Equal(t, 2, s.MissingB["badB"])
	assert.Equal(t, 1, s.MissingB["ok2"])

	_, err = SplitBySufficiency(tbl, []string{"zz"}, []string{"b1"})
	assert.Error(t, err)
}
