package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrDegenerateClass = errors.New("both classes need at least one example")

// GaussianNB is a two-class naive Bayes model with one independent normal
// per feature and class. VarSmoothing adds that fraction of the largest
// feature variance to every class variance.
type GaussianNB struct {
	VarSmoothing float64

	Theta [2][]float64 // per-class feature means
	Var   [2][]float64 // per-class feature variances
	Prior [2]float64
}

// Fit estimates per-class means and variances. Rows of x are observations.
func (nb *GaussianNB) Fit(x [][]float64, y []bool) error {
	if len(x) != len(y) {
		return ErrLengthMismatch
	}
	if len(x) == 0 {
		return ErrDegenerateClass
	}
	nFeat := len(x[0])

	var split [2][][]float64
	for i, row := range x {
		if len(row) != nFeat {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeat)
		}
		split[classIndex(y[i])] = append(split[classIndex(y[i])], row)
	}
	if len(split[0]) == 0 || len(split[1]) == 0 {
		return ErrDegenerateClass
	}

	maxVar := 0.0
	col := make([]float64, len(x))
	for j := 0; j < nFeat; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		maxVar = math.Max(maxVar, stat.PopVariance(col, nil))
	}
	eps := nb.VarSmoothing * maxVar

	for c := 0; c < 2; c++ {
		nb.Theta[c] = make([]float64, nFeat)
		nb.Var[c] = make([]float64, nFeat)
		vals := make([]float64, len(split[c]))
		for j := 0; j < nFeat; j++ {
			for i, row := range split[c] {
				vals[i] = row[j]
			}
			mean, variance := stat.PopMeanVariance(vals, nil)
			nb.Theta[c][j] = mean
			nb.Var[c][j] = variance + eps
		}
		nb.Prior[c] = float64(len(split[c])) / float64(len(x))
	}
	return nil
}

// Importances fits the model and scores each feature by how far apart the
// two class means are.
func (nb *GaussianNB) Importances(x [][]float64, y []bool) ([]float64, error) {
	if err := nb.Fit(x, y); err != nil {
		return nil, err
	}
	out := make([]float64, len(nb.Theta[0]))
	for j := range out {
		out[j] = math.Abs(nb.Theta[1][j] - nb.Theta[0][j])
	}
	return out, nil
}

func classIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NBClassifier adapts GaussianNB to the stateless Classifier contract; every
// call fits a fresh model so it is safe for concurrent use.
type NBClassifier struct {
	VarSmoothing float64
}

func (c NBClassifier) Importances(x [][]float64, y []bool) ([]float64, error) {
	nb := &GaussianNB{VarSmoothing: c.VarSmoothing}
	return nb.Importances(x, y)
}
