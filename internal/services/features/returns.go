package features

import "math"

// PctReturns computes simple returns r_t = (C_t - C_{t-1}) / C_{t-1}.
// It returns a slice of length len(prices)-1, or nil if insufficient data.
// A non-positive previous price yields NaN for that step.
func PctReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = (prices[i] - prev) / prev
	}
	return out
}

// Diff returns the first difference x_t - x_{t-1}.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}
