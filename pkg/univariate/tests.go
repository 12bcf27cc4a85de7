package univariate

import (
	"errors"
	"math"
	"math/rand/v2"

	mstats "github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/rank"
)

// PermutationResamples is the number of resamples of the permutation test.
const PermutationResamples = 9999

// WilcoxonExactLimit is the largest sample for the exact signed-rank
// distribution.
const WilcoxonExactLimit = 50

// Compare runs a row-wise test on two groups. Missing values are dropped
// except for the paired test, which drops incomplete pairs. Undefined
// results are NaN.
func Compare(test Test, a, b []float64, rng *rand.Rand) (statistic, pvalue float64) {
	if test == Wilcoxon {
		return wilcoxonSignedRank(a, b)
	}

	x, y := core.Present(a), core.Present(b)
	if len(x) == 0 || len(y) == 0 {
		return math.NaN(), math.NaN()
	}
	switch test {
	case MannWhitney:
		return mannWhitney(x, y)
	case KruskalWallis:
		return kruskalWallis(x, y)
	case RankSum:
		return rankSum(x, y)
	case StudentT:
		return studentT(x, y)
	case BrunnerMunzel:
		return brunnerMunzel(x, y)
	case Permutation:
		return permutation(x, y, rng)
	}
	return math.NaN(), math.NaN()
}

// mannWhitney reports U1 and the smallest p-value over the three
// alternatives.
func mannWhitney(x, y []float64) (float64, float64) {
	best := math.Inf(1)
	u := math.NaN()
	for _, alt := range []mstats.LocationHypothesis{mstats.LocationLess, mstats.LocationDiffers, mstats.LocationGreater} {
		res, err := mstats.MannWhitneyUTest(x, y, alt)
		if errors.Is(err, mstats.ErrSamplesEqual) {
			return float64(len(x)*len(y)) / 2, 1
		}
		if err != nil {
			return math.NaN(), math.NaN()
		}
		u = res.U
		best = math.Min(best, res.P)
	}
	return u, math.Min(best, 1)
}

func kruskalWallis(x, y []float64) (float64, float64) {
	ranks, ties := rank.Average(append(append([]float64(nil), x...), y...))
	n := float64(len(ranks))

	var rx, ry float64
	for i, r := range ranks {
		if i < len(x) {
			rx += r
		} else {
			ry += r
		}
	}
	h := 12/(n*(n+1))*(rx*rx/float64(len(x))+ry*ry/float64(len(y))) - 3*(n+1)

	correction := 1 - rank.TieSum(ties)/(n*n*n-n)
	if correction <= 0 {
		return math.NaN(), math.NaN()
	}
	h /= correction
	return h, distuv.ChiSquared{K: 1}.Survival(h)
}

func rankSum(x, y []float64) (float64, float64) {
	ranks, _ := rank.Average(append(append([]float64(nil), x...), y...))
	n1, n2 := float64(len(x)), float64(len(y))

	s := 0.0
	for _, r := range ranks[:len(x)] {
		s += r
	}
	expected := n1 * (n1 + n2 + 1) / 2
	z := (s - expected) / math.Sqrt(n1*n2*(n1+n2+1)/12)
	return z, 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

func studentT(x, y []float64) (float64, float64) {
	res, err := mstats.TwoSampleTTest(mstats.Sample{Xs: x}, mstats.Sample{Xs: y}, mstats.LocationDiffers)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return res.T, res.P
}

// brunnerMunzel reports W and the smaller one-sided p-value from a t
// distribution with Welch-Satterthwaite degrees of freedom.
func brunnerMunzel(x, y []float64) (float64, float64) {
	nx, ny := float64(len(x)), float64(len(y))
	if len(x) < 2 || len(y) < 2 {
		return math.NaN(), math.NaN()
	}

	combined, _ := rank.Average(append(append([]float64(nil), x...), y...))
	rcx, rcy := combined[:len(x)], combined[len(x):]
	rx, _ := rank.Average(x)
	ry, _ := rank.Average(y)

	mcx, mcy := stat.Mean(rcx, nil), stat.Mean(rcy, nil)
	mx, my := stat.Mean(rx, nil), stat.Mean(ry, nil)

	var sx, sy float64
	for i := range rcx {
		d := rcx[i] - rx[i] - mcx + mx
		sx += d * d
	}
	sx /= nx - 1
	for i := range rcy {
		d := rcy[i] - ry[i] - mcy + my
		sy += d * d
	}
	sy /= ny - 1

	numer := (nx*sx + ny*sy) * (nx*sx + ny*sy)
	denom := (nx*sx)*(nx*sx)/(nx-1) + (ny*sy)*(ny*sy)/(ny-1)
	if numer == 0 || denom == 0 {
		return math.NaN(), math.NaN()
	}
	w := nx * ny * (mcy - mcx) / ((nx + ny) * math.Sqrt(nx*sx+ny*sy))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: numer / denom}
	return w, math.Min(t.CDF(w), t.Survival(w))
}

// permutation tests the difference of means by enumerating every split when
// there are at most PermutationResamples of them, and by seeded random
// resampling otherwise.
func permutation(x, y []float64, rng *rand.Rand) (float64, float64) {
	all := append(append([]float64(nil), x...), y...)
	nx, n := len(x), len(all)
	total := 0.0
	for _, v := range all {
		total += v
	}
	diff := func(sub float64) float64 {
		return sub/float64(nx) - (total-sub)/float64(n-nx)
	}
	observed := stat.Mean(x, nil) - stat.Mean(y, nil)

	var null []float64
	adjustment := 0.0
	if binomial(n, nx) <= PermutationResamples {
		combinations(n, nx, func(idx []int) {
			s := 0.0
			for _, i := range idx {
				s += all[i]
			}
			null = append(null, diff(s))
		})
	} else {
		adjustment = 1
		null = make([]float64, PermutationResamples)
		for r := range null {
			s := 0.0
			for _, i := range rng.Perm(n)[:nx] {
				s += all[i]
			}
			null[r] = diff(s)
		}
	}

	gamma := math.Abs(1e-14 * observed)
	var less, greater float64
	for _, v := range null {
		if v <= observed+gamma {
			less++
		}
		if v >= observed-gamma {
			greater++
		}
	}
	size := float64(len(null)) + adjustment
	pLess := (less + adjustment) / size
	pGreater := (greater + adjustment) / size
	return observed, math.Min(1, 2*math.Min(pLess, pGreater))
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return math.Round(r)
}

// combinations calls fn with every ascending k-subset of [0, n).
func combinations(n, k int, fn func([]int)) {
	idx := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			fn(idx)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			idx[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

// wilcoxonSignedRank pairs a and b by position. Pairs with a missing value
// and zero differences are dropped. The statistic is min(R+, R-).
func wilcoxonSignedRank(a, b []float64) (float64, float64) {
	if len(a) != len(b) {
		return math.NaN(), math.NaN()
	}
	var d []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || a[i] == b[i] {
			continue
		}
		d = append(d, a[i]-b[i])
	}
	n := len(d)
	if n == 0 {
		return math.NaN(), math.NaN()
	}

	abs := make([]float64, n)
	for i, v := range d {
		abs[i] = math.Abs(v)
	}
	ranks, ties := rank.Average(abs)
	var plus, minus float64
	for i, r := range ranks {
		if d[i] > 0 {
			plus += r
		} else {
			minus += r
		}
	}
	t := math.Min(plus, minus)

	if n <= WilcoxonExactLimit && !rank.HasTies(ties) {
		return t, math.Min(1, 2*signedRankCDF(n, t))
	}

	fn := float64(n)
	mean := fn * (fn + 1) / 4
	se := math.Sqrt((fn*(fn+1)*(2*fn+1) - 0.5*rank.TieSum(ties)) / 24)
	if se == 0 {
		return t, math.NaN()
	}
	z := (t - mean) / se
	return t, 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// signedRankCDF is P(T <= t) under the null for n untied nonzero differences.
func signedRankCDF(n int, t float64) float64 {
	maxSum := n * (n + 1) / 2
	counts := make([]float64, maxSum+1)
	counts[0] = 1
	for k := 1; k <= n; k++ {
		for s := maxSum; s >= k; s-- {
			counts[s] += counts[s-k]
		}
	}
	cum := 0.0
	for s := 0; s <= int(math.Floor(t)) && s <= maxSum; s++ {
		cum += counts[s]
	}
	return cum / math.Pow(2, float64(n))
}
