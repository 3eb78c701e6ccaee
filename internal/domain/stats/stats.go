// Package stats provides the shared numeric helpers used by the pipeline
// stages: population moments, z-score standardization, and average-rank
// percentiles. All helpers are pure and return finite values; degenerate
// inputs (empty slices, zero variance) yield the documented defaults rather
// than NaN.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Median returns the middle value (mean of the two middle values for even
// lengths), or 0 for an empty slice. The input is not modified.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// StdDev returns the unbiased sample standard deviation. A slice with fewer
// than two values has standard deviation 0 by definition here, not NaN.
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// ZScores standardizes xs against its own mean and sample std. When the std
// is 0 every z-score is 0: a constant column carries no signal.
func ZScores(xs []float64) []float64 {
	zs := make([]float64, len(xs))
	m := Mean(xs)
	sd := StdDev(xs)
	if sd == 0 {
		return zs
	}
	for i, x := range xs {
		zs[i] = (x - m) / sd
	}
	return zs
}

// PercentileRanks returns the percentile position of each value within xs,
// in [0,100], using the average-rank convention: ties share the mean of the
// 1-based ranks they would occupy, and pct = meanRank / n * 100.
func PercentileRanks(xs []float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	// Walk runs of equal values and assign each member the mean rank of
	// the run.
	for i := 0; i < n; {
		j := i
		for j < n && xs[idx[j]] == xs[idx[i]] {
			j++
		}
		meanRank := float64(i+j+1) / 2 // mean of 1-based ranks i+1 .. j
		for k := i; k < j; k++ {
			out[idx[k]] = meanRank / float64(n) * 100
		}
		i = j
	}
	return out
}

// Finite replaces NaN and infinities with def.
func Finite(x, def float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return def
	}
	return x
}
