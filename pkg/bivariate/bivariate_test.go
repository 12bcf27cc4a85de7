package bivariate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/gmean"
	"github.com/ChrisMcGann/isostat/pkg/padj"
)

var nan = math.NaN()

func TestCorrelate(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		x, y   []float64
		wantR  float64
		wantP  float64
	}{
		{name: "reversed MDV", method: Pearson, x: []float64{0.1894, 0.3026, 0.506}, y: []float64{0.506, 0.3026, 0.1894}, wantR: -0.947313, wantP: 0.207574},
		{name: "pearson", method: Pearson, x: []float64{1, 2, 3, 4, 5}, y: []float64{2, 1, 4, 3, 5}, wantR: 0.8, wantP: 0.104088},
		{name: "spearman monotone", method: Spearman, x: []float64{10, 20, 30, 40, 50}, y: []float64{1, 4, 9, 16, 100}, wantR: 1, wantP: 0},
		{name: "spearman ranks", method: Spearman, x: []float64{0.1, 0.7, 0.2, 0.9, 0.3}, y: []float64{1, 3, 2, 5, 4}, wantR: 0.9, wantP: 0.037386},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p := Correlate(tt.method, tt.x, tt.y)
			assert.InDelta(t, tt.wantR, r, 1e-6)
			assert.InDelta(t, tt.wantP, p, 1e-6)
		})
	}
}

func TestCorrelateUndefined(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{name: "too short", x: []float64{1, 2}, y: []float64{2, 1}},
		{name: "length mismatch", x: []float64{1, 2, 3}, y: []float64{1, 2}},
		{name: "missing value", x: []float64{1, nan, 3}, y: []float64{1, 2, 3}},
		{name: "constant", x: []float64{2, 2, 2}, y: []float64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, m := range []Method{Pearson, Spearman} {
				r, p := Correlate(m, tt.x, tt.y)
				assert.True(t, math.IsNaN(r))
				assert.True(t, math.IsNaN(p))
			}
		})
	}
}

func TestArrayMarshalCSV(t *testing.T) {
	s, err := Array{0.1894, nan, 1}.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "[0.1894, nan, 1]", s)
}

func TestRunnerRejectsMisalignedPair(t *testing.T) {
	pairs := []gmean.Pair{{
		Metabolite: "Cit",
		A:          gmean.Side{Keys: []string{"m+0", "m+1"}, Values: []float64{0.5, 0.5}},
		B:          gmean.Side{Keys: []string{"m+0"}, Values: []float64{1}},
	}}
	_, err := NewRunner(Pearson, padj.FdrBH).Run(pairs, "cell")
	assert.ErrorIs(t, err, core.ErrLengthMismatch)
}

func testMetadata() *core.Metadata {
	return metadataFor("ctrl", "treat")
}

func metadataFor(conditions ...string) *core.Metadata {
	var samples []core.Sample
	for _, cond := range conditions {
		for _, tp := range []struct {
			label string
			num   float64
		}{{"T0", 0}, {"T1", 1}, {"T2", 2}} {
			for _, rep := range []string{"1", "2"} {
				samples = append(samples, core.Sample{
					Name:        cond + "_" + tp.label + "_" + rep,
					Condition:   cond,
					Timepoint:   tp.label,
					TimeNum:     tp.num,
					Compartment: "cell",
				})
			}
		}
	}
	return &core.Metadata{Samples: samples}
}

// isotopologueTable shifts label into m+1 and m+2 over time, faster under treat.
func isotopologueTable(t *testing.T, meta *core.Metadata) *core.Table {
	rows := []string{"Glc_m+0", "Glc_m+1", "Glc_m+2", "Lac_m+0", "Lac_m+1"}
	cols := meta.Names()
	values := make([][]float64, len(rows))
	for i := range rows {
		values[i] = make([]float64, len(cols))
	}
	for j, s := range meta.Samples {
		f := 0.1 * (s.TimeNum + 1)
		if s.Condition == "treat" {
			f *= 2
		}
		values[0][j] = 1 - f
		values[1][j] = f * 0.6
		values[2][j] = f * 0.4
		values[3][j] = 1 - f/2
		values[4][j] = f / 2
	}
	tbl, err := core.NewTable(rows, cols, values)
	require.NoError(t, err)
	return tbl
}

func TestUnitsConditionsMDV(t *testing.T) {
	meta := testMetadata()
	tbl := isotopologueTable(t, meta)
	idx, err := core.BuildIsotopologueIndex(tbl.Rows)
	require.NoError(t, err)

	units, err := Units(comparison.ConditionsMDV, tbl, idx, meta, selection(t, meta, nil, [][]string{{"treat", "ctrl"}}))
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "treat-ctrl", units[0].Comparison)
	assert.Equal(t, "T0", units[0].Key)
	require.Len(t, units[0].Pairs, 2)
	assert.Equal(t, "Glc", units[0].Pairs[0].Metabolite)
	assert.Equal(t, []string{"m+0", "m+1", "m+2"}, units[0].Pairs[0].A.Keys)

	results, err := NewRunner(Pearson, padj.FdrBH).Run(units[0].Pairs, "cell")
	require.NoError(t, err)
	assert.Equal(t, "cell", results[0].Compartment)
	assert.Greater(t, results[0].Coefficient, 0.9)
	// two isotopologues are too few to correlate
	assert.True(t, math.IsNaN(results[1].Coefficient))
	assert.True(t, math.IsNaN(results[1].Padj))
}

func TestUnitsTimepointsMDV(t *testing.T) {
	meta := testMetadata()
	tbl := isotopologueTable(t, meta)
	idx, err := core.BuildIsotopologueIndex(tbl.Rows)
	require.NoError(t, err)

	units, err := Units(comparison.TimepointsMDV, tbl, idx, meta, selection(t, meta, []string{"treat", "ctrl"}, nil))
	require.NoError(t, err)
	require.Len(t, units, 4)
	assert.Equal(t, "T1-T0", units[0].Comparison)
	assert.Equal(t, "ctrl", units[0].Key)
	assert.Equal(t, "T2-T1", units[1].Comparison)
	assert.Equal(t, "treat", units[2].Key)
}

func TestUnitsOnlySelectedConditions(t *testing.T) {
	meta := metadataFor("ctrl", "other", "treat")
	tbl := isotopologueTable(t, meta)
	idx, err := core.BuildIsotopologueIndex(tbl.Rows)
	require.NoError(t, err)
	sel := selection(t, meta, []string{"ctrl", "treat"}, nil)

	for _, behavior := range []comparison.Behavior{comparison.ConditionsMDV, comparison.TimepointsMDV} {
		t.Run(behavior.String(), func(t *testing.T) {
			units, err := Units(behavior, tbl, idx, meta, sel)
			require.NoError(t, err)
			require.NotEmpty(t, units)
			for _, u := range units {
				assert.NotEqual(t, "other", u.Key)
				assert.NotContains(t, u.Comparison, "other")
			}
		})
	}

	units, err := Units(comparison.ConditionsMDV, tbl, idx, meta, sel)
	require.NoError(t, err)
	// the condition list expands to sorted pairs
	assert.Equal(t, "ctrl-treat", units[0].Comparison)
}

func TestUnitsTimeProfiles(t *testing.T) {
	meta := testMetadata()
	cols := meta.Names()
	values := [][]float64{make([]float64, len(cols))}
	for j, s := range meta.Samples {
		values[0][j] = 1 + s.TimeNum
		if s.Condition == "treat" {
			values[0][j] = 10 - s.TimeNum*s.TimeNum
		}
	}
	tbl, err := core.NewTable([]string{"Glc"}, cols, values)
	require.NoError(t, err)

	units, err := Units(comparison.ConditionsTimeProfiles, tbl, nil, meta, selection(t, meta, []string{"ctrl", "treat"}, nil))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "ctrl-treat", units[0].Comparison)
	assert.Empty(t, units[0].Key)

	results, err := NewRunner(Spearman, padj.Bonferroni).Run(units[0].Pairs, "cell")
	require.NoError(t, err)
	assert.Equal(t, Array{1, 2, 3}, results[0].GmeanA)
	assert.Equal(t, Array{10, 9, 6}, results[0].GmeanB)
	assert.Equal(t, -1.0, results[0].Coefficient)
	assert.Equal(t, 0.0, results[0].PValue)
}

func TestUnitsErrors(t *testing.T) {
	meta := testMetadata()
	tbl := isotopologueTable(t, meta)
	idx, err := core.BuildIsotopologueIndex(tbl.Rows)
	require.NoError(t, err)

	_, err = Units(comparison.Behavior(9), tbl, idx, meta, selection(t, meta, []string{"ctrl"}, nil))
	assert.ErrorIs(t, err, core.ErrUnsupportedBehavior)
}

func selection(t *testing.T, meta *core.Metadata, conditions []string, pairs [][]string) *comparison.Selection {
	t.Helper()
	sel, err := comparison.Select(conditions, pairs, meta)
	require.NoError(t, err)
	return sel
}
