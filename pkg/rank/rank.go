// Package rank assigns fractional ranks used by the rank-based tests.
package rank

import "sort"

// Average ranks values from 1, giving tied values the mean of the ranks they
// span. It also returns the size of every tie group, singletons included.
func Average(values []float64) ([]float64, []int) {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, len(values))
	var ties []int
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && values[order[j+1]] == values[order[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = r
		}
		ties = append(ties, j-i+1)
		i = j + 1
	}
	return ranks, ties
}

// TieSum returns Σ(t³ − t) over the tie group sizes.
func TieSum(ties []int) float64 {
	s := 0.0
	for _, t := range ties {
		ft := float64(t)
		s += ft*ft*ft - ft
	}
	return s
}

// HasTies reports whether any group holds more than one value.
func HasTies(ties []int) bool {
	for _, t := range ties {
		if t > 1 {
			return true
		}
	}
	return false
}
