package univariate

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Metrics are the descriptive columns reported for every row, whether or not
// it was tested.
type Metrics struct {
	Distance         float64
	Span             float64
	DistanceOverSpan float64
	FC               float64
	Log2FC           float64
	MissingA         int
	MissingB         int
}

// ComputeMetrics summarises the present values of both groups. Values are
// rounded to core.Precision decimals.
func ComputeMetrics(a, b []float64) Metrics {
	m := Metrics{
		Distance:         math.NaN(),
		Span:             math.NaN(),
		DistanceOverSpan: math.NaN(),
		FC:               math.NaN(),
		Log2FC:           math.NaN(),
		MissingA:         core.CountMissing(a),
		MissingB:         core.CountMissing(b),
	}
	x, y := core.Present(a), core.Present(b)

	if all := append(append([]float64(nil), x...), y...); len(all) > 0 {
		lo, _ := stats.Min(all)
		hi, _ := stats.Max(all)
		m.Span = hi - lo
	}

	if len(x) > 0 && len(y) > 0 {
		minA, _ := stats.Min(x)
		maxA, _ := stats.Max(x)
		minB, _ := stats.Min(y)
		maxB, _ := stats.Max(y)
		m.Distance = math.Max(minA, minB) - math.Min(maxA, maxB)
		if m.Span != 0 {
			m.DistanceOverSpan = m.Distance / m.Span
		}

		meanA, _ := stats.Mean(x)
		meanB, _ := stats.Mean(y)
		if meanB != 0 {
			m.FC = meanA / meanB
		}
		if m.FC > 0 {
			m.Log2FC = math.Log2(m.FC)
		}
	}

	m.Distance = core.RoundFloat(m.Distance, core.Precision)
	m.Span = core.RoundFloat(m.Span, core.Precision)
	m.DistanceOverSpan = core.RoundFloat(m.DistanceOverSpan, core.Precision)
	m.FC = core.RoundFloat(m.FC, core.Precision)
	m.Log2FC = core.RoundFloat(m.Log2FC, core.Precision)
	return m
}
