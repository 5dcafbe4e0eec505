package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrailingMean averages the last window values of x ending at index end
// (inclusive). Shorter prefixes average whatever is available.
func TrailingMean(x []float64, end, window int) float64 {
	if end < 0 || len(x) == 0 {
		return math.NaN()
	}
	if end >= len(x) {
		end = len(x) - 1
	}
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	return stat.Mean(x[start:end+1], nil)
}

// MovingAverage smooths x with a trailing window. The first window-1 points
// use the partial window so the output keeps len(x).
func MovingAverage(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 1 {
		copy(out, x)
		return out
	}
	for i := range x {
		out[i] = TrailingMean(x, i, window)
	}
	return out
}

// Pearson returns the Pearson correlation of x and y, or 0 when it is
// undefined (length mismatch, fewer than two points, or zero variance).
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if floats.Max(x) == floats.Min(x) || floats.Max(y) == floats.Min(y) {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

// Finite reports whether every value is a finite number.
func Finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// DropNonFinite keeps only the indexes where both x and y are finite.
func DropNonFinite(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	ox := make([]float64, 0, n)
	oy := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if Finite(x[i], y[i]) {
			ox = append(ox, x[i])
			oy = append(oy, y[i])
		}
	}
	return ox, oy
}
