package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPctReturns(t *testing.T) {
	got := PctReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)

	assert.Nil(t, PctReturns([]float64{1}))
	assert.True(t, math.IsNaN(PctReturns([]float64{0, 1})[0]))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, -3}, Diff([]float64{1, 2, -1}))
	assert.Nil(t, Diff(nil))
}

func TestTrailingMeanAndMovingAverage(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, TrailingMean(x, 4, 3), 1e-12)
	assert.InDelta(t, 1.5, TrailingMean(x, 1, 3), 1e-12)

	ma := MovingAverage(x, 2)
	require.Len(t, ma, len(x))
	assert.Equal(t, []float64{1, 1.5, 2.5, 3.5, 4.5}, ma)
	assert.Equal(t, x, MovingAverage(x, 1))
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, Pearson(x, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{4, 3, 2, 1}), 1e-12)
	assert.Zero(t, Pearson(x, []float64{5, 5, 5, 5}), "constant series has no correlation")
	assert.Zero(t, Pearson(x, []float64{1, 2}))
}

func TestDropNonFinite(t *testing.T) {
	x, y := DropNonFinite([]float64{1, math.NaN(), 3, 4}, []float64{1, 2, math.Inf(1), 4})
	assert.Equal(t, []float64{1, 4}, x)
	assert.Equal(t, []float64{1, 4}, y)
}
