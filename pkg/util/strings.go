package util

import (
	"math"
	"strings"
)

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// RoundTo rounds x to dp decimal places, half away from zero.
func RoundTo(x float64, dp int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow10(dp)
	return math.Round(x*p) / p
}
