package analytics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrLengthMismatch = errors.New("series length mismatch")
	ErrTooFewObs      = errors.New("too few observations for lag")
	ErrPerfectFit     = errors.New("unrestricted model fits exactly")
)

// GrangerFTest is the sum-of-squared-residuals F-test for lag exclusion:
// for each lag p it compares
//
//	target_t ~ 1 + target_{t-1..t-p}
//	target_t ~ 1 + target_{t-1..t-p} + source_{t-1..t-p}
//
// and reports P(F > f) with (p, nobs-2p-1) degrees of freedom.
type GrangerFTest struct{}

func (GrangerFTest) PValues(target, source []float64, maxLag int) ([]float64, error) {
	if len(target) != len(source) {
		return nil, ErrLengthMismatch
	}
	if maxLag < 1 {
		return nil, fmt.Errorf("max lag must be positive, got %d", maxLag)
	}

	out := make([]float64, 0, maxLag)
	for p := 1; p <= maxLag; p++ {
		pv, err := grangerPValue(target, source, p)
		if err != nil {
			return nil, fmt.Errorf("lag %d: %w", p, err)
		}
		out = append(out, pv)
	}
	return out, nil
}

func grangerPValue(y, x []float64, p int) (float64, error) {
	nobs := len(y) - p
	dfResid := nobs - 2*p - 1
	if dfResid <= 0 {
		return 0, ErrTooFewObs
	}

	restricted := mat.NewDense(nobs, p+1, nil)
	full := mat.NewDense(nobs, 2*p+1, nil)
	yv := mat.NewVecDense(nobs, nil)

	for t := 0; t < nobs; t++ {
		row := t + p
		yv.SetVec(t, y[row])
		restricted.Set(t, 0, 1)
		full.Set(t, 0, 1)
		for l := 1; l <= p; l++ {
			restricted.Set(t, l, y[row-l])
			full.Set(t, l, y[row-l])
			full.Set(t, p+l, x[row-l])
		}
	}

	ssrR, err := ssr(restricted, yv)
	if err != nil {
		return 0, fmt.Errorf("restricted model: %w", err)
	}
	ssrU, err := ssr(full, yv)
	if err != nil {
		return 0, fmt.Errorf("unrestricted model: %w", err)
	}
	if ssrU <= 0 {
		return 0, ErrPerfectFit
	}

	f := ((ssrR - ssrU) / float64(p)) / (ssrU / float64(dfResid))
	if f < 0 {
		f = 0
	}
	return distuv.F{D1: float64(p), D2: float64(dfResid)}.Survival(f), nil
}

// ssr fits y ~ X by least squares and returns the residual sum of squares.
// An ill-conditioned design surfaces as a mat.Condition error.
func ssr(x *mat.Dense, y *mat.VecDense) (float64, error) {
	var qr mat.QR
	qr.Factorize(x)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return 0, err
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	return mat.Dot(&resid, &resid), nil
}
