package synth

// AlignCloses maps fetched closes onto n points: the most recent n when
// there are more, cyclic repetition from the start when there are fewer.
func AlignCloses(closes []float64, n int) []float64 {
	if len(closes) == 0 || n <= 0 {
		return nil
	}
	if len(closes) >= n {
		out := make([]float64, n)
		copy(out, closes[len(closes)-n:])
		return out
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = closes[i%len(closes)]
	}
	return out
}

// FitLength truncates col to n or pads it with its last value.
func FitLength(col []float64, n int) []float64 {
	if len(col) == n {
		return col
	}
	if len(col) > n {
		return col[:n]
	}
	out := make([]float64, n)
	copy(out, col)
	last := 0.0
	if len(col) > 0 {
		last = col[len(col)-1]
	}
	for i := len(col); i < n; i++ {
		out[i] = last
	}
	return out
}
