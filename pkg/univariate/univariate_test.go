package univariate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/distfit"
	"github.com/ChrisMcGann/isostat/pkg/padj"
)

var nan = math.NaN()

func TestParseTest(t *testing.T) {
	for _, name := range []string{"MW", "KW", "ranksum", "Wcox", "Tt", "BrMu", "prm-scipy", "disfit", "none"} {
		test, err := ParseTest(name)
		require.NoError(t, err)
		assert.Equal(t, name, test.String())
	}
	_, err := ParseTest("anova")
	assert.ErrorIs(t, err, core.ErrUnsupportedTest)
}

func TestCompareKnownValues(t *testing.T) {
	rng := distfit.NewRand(distfit.DefaultSeed)
	tests := []struct {
		name     string
		test     Test
		a, b     []float64
		wantStat float64
		wantP    float64
	}{
		{name: "MW separated", test: MannWhitney, a: []float64{722, 760, 750, 700}, b: []float64{150, 177, 165, 110}, wantStat: 16, wantP: 1.0 / 70},
		{name: "MW one swap", test: MannWhitney, a: []float64{15, 8, 11, 20}, b: []float64{9, 3, 1}, wantStat: 11, wantP: 2.0 / 35},
		{name: "MW all equal", test: MannWhitney, a: []float64{2, 2}, b: []float64{2, 2}, wantStat: 2, wantP: 1},
		{name: "KW", test: KruskalWallis, a: []float64{15, 8, 11}, b: []float64{9, 3}, wantStat: 1.333333, wantP: 0.248213},
		{name: "ranksum", test: RankSum, a: []float64{15, 8, 11}, b: []float64{9, 3}, wantStat: 1.154701, wantP: 0.248213},
		{name: "Tt", test: StudentT, a: []float64{15, 8, 11}, b: []float64{9, 3}, wantStat: 1.549193, wantP: 0.219102},
		{name: "BrMu met1", test: BrunnerMunzel, a: []float64{15, 8, 11}, b: []float64{9, 3, nan}, wantStat: -1.414214, wantP: 0.131399},
		{name: "BrMu met3", test: BrunnerMunzel, a: []float64{310, 2, 70}, b: []float64{100, 5, 4}, wantStat: -0.176777, wantP: 0.436360},
		{name: "prm exact", test: Permutation, a: []float64{15, 8, 11}, b: []float64{9, 3}, wantStat: 5.333333, wantP: 0.4},
		{name: "prm separated", test: Permutation, a: []float64{1, 2, 3}, b: []float64{4, 5, 6}, wantStat: -3, wantP: 0.1},
		{name: "Wcox exact", test: Wilcoxon, a: []float64{1.1, 2.5, 3.2, 4.9, 5.3}, b: []float64{1.0, 2.0, 3.6, 4.1, 4.0}, wantStat: 2, wantP: 0.1875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := Compare(tt.test, tt.a, tt.b, rng)
			assert.InDelta(t, tt.wantStat, s, 1e-6)
			assert.InDelta(t, tt.wantP, p, 1e-6)
		})
	}
}

func TestWilcoxonUndefined(t *testing.T) {
	s, p := Compare(Wilcoxon, []float64{1, 2, 3}, []float64{1, 2}, nil)
	assert.True(t, math.IsNaN(s) && math.IsNaN(p))

	s, p = Compare(Wilcoxon, []float64{1, 2, 3}, []float64{1, 2, 3}, nil)
	assert.True(t, math.IsNaN(s) && math.IsNaN(p))
}

func TestWilcoxonNormalApproximationWithTies(t *testing.T) {
	a := []float64{3, 4, 5, 6, 7, 8}
	b := []float64{1, 2, 3, 4, 5, 6}
	s, p := Compare(Wilcoxon, a, b, nil)
	// all differences are 2, so every rank ties and R- is zero
	assert.Equal(t, 0.0, s)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.05)
}

func TestPermutationResamplingIsSeeded(t *testing.T) {
	a := make([]float64, 10)
	b := make([]float64, 10)
	for i := range a {
		a[i] = float64(i) + 0.5
		b[i] = float64(i)
	}
	s1, p1 := Compare(Permutation, a, b, distfit.NewRand(7))
	s2, p2 := Compare(Permutation, a, b, distfit.NewRand(7))
	assert.Equal(t, s1, s2)
	assert.Equal(t, p1, p2)
	assert.InDelta(t, 0.5, s1, 1e-12)
	assert.Greater(t, p1, 0.5)
	assert.LessOrEqual(t, p1, 1.0)
}

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name         string
		a, b         []float64
		wantDistance float64
		wantSpan     float64
	}{
		{name: "overlap", a: []float64{15, 8}, b: []float64{11, 9}, wantDistance: -2, wantSpan: 7},
		{name: "wide overlap", a: []float64{22, 30}, b: []float64{25, 33}, wantDistance: -5, wantSpan: 11},
		{name: "separated", a: []float64{310, 220}, b: []float64{170, 100}, wantDistance: 50, wantSpan: 210},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(tt.a, tt.b)
			assert.Equal(t, tt.wantDistance, m.Distance)
			assert.Equal(t, tt.wantSpan, m.Span)
			assert.InDelta(t, tt.wantDistance/tt.wantSpan, m.DistanceOverSpan, 1e-6)
		})
	}

	m := ComputeMetrics([]float64{4, 4, nan}, []float64{2, 2})
	assert.Equal(t, 2.0, m.FC)
	assert.Equal(t, 1.0, m.Log2FC)
	assert.Equal(t, 1, m.MissingA)
	assert.Equal(t, 0, m.MissingB)

	m = ComputeMetrics([]float64{3, 3}, []float64{3, 3})
	assert.True(t, math.IsNaN(m.DistanceOverSpan))

	m = ComputeMetrics([]float64{1, 2}, []float64{0, 0})
	assert.True(t, math.IsNaN(m.FC))
	assert.True(t, math.IsNaN(m.Log2FC))
}

func differentialTable(t *testing.T) *core.Table {
	tbl, err := core.NewTable(
		[]string{"met1", "met2", "met3"},
		[]string{"c1", "c2", "c3", "c4", "c5", "c6"},
		[][]float64{
			{15, 8, 11, 9, 3, nan},
			{22, nan, nan, 33, nan, 8},
			{310, 2, 70, 100, 5, 4},
		})
	require.NoError(t, err)
	return tbl
}

func TestRunnerBrunnerMunzel(t *testing.T) {
	r := NewRunner(BrunnerMunzel, padj.FdrBH)
	out, err := r.Run(differentialTable(t), []string{"c1", "c2", "c3"}, []string{"c4", "c5", "c6"}, "cyto")
	require.NoError(t, err)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 2, out.Tested)

	met1, met2, met3 := out.Results[0], out.Results[1], out.Results[2]
	assert.InDelta(t, 0.131399, met1.PValue, 1e-6)
	assert.InDelta(t, 0.436360, met3.PValue, 1e-6)
	assert.InDelta(t, 0.262797, met1.Padj, 1e-6)
	assert.InDelta(t, 0.436360, met3.Padj, 1e-6)
	assert.Equal(t, "cyto", met1.Compartment)

	// met2 has a single present value in the first group
	assert.True(t, math.IsNaN(met2.Stat))
	assert.True(t, math.IsNaN(met2.PValue))
	assert.True(t, math.IsNaN(met2.Padj))
	assert.Equal(t, 2, met2.MissingA)
	assert.Equal(t, 1, met2.MissingB)
	assert.False(t, math.IsNaN(met2.Span))
}

func TestRunnerNone(t *testing.T) {
	out, err := NewRunner(NoTest, padj.FdrBH).Run(differentialTable(t), []string{"c1", "c2", "c3"}, []string{"c4", "c5", "c6"}, "cyto")
	require.NoError(t, err)
	for _, res := range out.Results {
		assert.True(t, math.IsNaN(res.Stat))
		assert.True(t, math.IsNaN(res.PValue))
		assert.True(t, math.IsNaN(res.Padj))
		assert.False(t, math.IsNaN(res.Distance))
	}
}

func TestRunnerUnknownColumn(t *testing.T) {
	_, err := NewRunner(MannWhitney, padj.FdrBH).Run(differentialTable(t), []string{"c1", "zz"}, []string{"c4"}, "cyto")
	assert.Error(t, err)
}

func TestRunnerDistFit(t *testing.T) {
	rng := distfit.NewRand(5)
	rows := make([]string, 300)
	values := make([][]float64, 300)
	for i := range rows {
		rows[i] = "met" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		base := 10 + rng.NormFloat64()
		values[i] = []float64{base * 1.1, base * 0.9, base, base*(1+0.1*rng.NormFloat64()) + 0.5, base}
	}
	tbl, err := core.NewTable(rows, []string{"a1", "a2", "a3", "b1", "b2"}, values)
	require.NoError(t, err)

	catalog, err := distfit.DefaultCatalog().Select([]string{"norm", "laplace", "logistic"})
	require.NoError(t, err)
	r := NewRunner(DistFit, padj.FdrBH)
	r.Fitter = &distfit.Fitter{Catalog: catalog, Bins: 30}

	out, err := r.Run(tbl, []string{"a1", "a2", "a3"}, []string{"b1", "b2"}, "cell")
	require.NoError(t, err)
	require.NotNil(t, out.Fit)
	assert.Contains(t, []string{"norm", "laplace", "logistic"}, out.Fit.Distribution.Name)
	for _, res := range out.Results {
		assert.False(t, math.IsNaN(res.Stat))
		assert.GreaterOrEqual(t, res.PValue, 0.0)
		assert.LessOrEqual(t, res.PValue, 1.0)
		assert.GreaterOrEqual(t, res.Padj, res.PValue)
	}
}

func TestRunnerDistFitDegenerate(t *testing.T) {
	tbl, err := core.NewTable([]string{"m1", "m2"}, []string{"a1", "a2", "b1", "b2"},
		[][]float64{{1, 1, 1, 1}, {2, 2, 2, 2}})
	require.NoError(t, err)

	out, err := NewRunner(DistFit, padj.FdrBH).Run(tbl, []string{"a1", "a2"}, []string{"b1", "b2"}, "cell")
	require.NoError(t, err)
	assert.Nil(t, out.Fit)
	for _, res := range out.Results {
		assert.True(t, math.IsNaN(res.PValue))
	}
}
