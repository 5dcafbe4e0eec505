package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/services/features"
)

const (
	tradingDays      = 252
	maxAbsChangePct  = 30.0
	minVol           = 0.005
	maxVol           = 0.03
	reversionPull    = 0.05
	clusterProb      = 0.3
	clusterMult      = 1.5
	clusterThreshold = 2.0
	priceFloor       = 0.01
)

// Params tunes the synthetic walk.
type Params struct {
	Days            int
	Seed            uint64
	Momentum        float64 // share of the previous realized return carried forward
	ReversionWindow int     // trailing average window for mean reversion
	SmoothWindow    int     // 0 or 1 disables smoothing
}

func DefaultParams() Params {
	return Params{Days: 180, Seed: 42, Momentum: 0.15, ReversionWindow: 20}
}

// DriftAndVol derives the daily drift and volatility from a percent change.
func DriftAndVol(changePct float64) (drift, vol float64) {
	pct := clamp(changePct, -maxAbsChangePct, maxAbsChangePct)
	drift = pct / 100 / tradingDays
	vol = clamp(math.Abs(drift)*3+0.01, minVol, maxVol)
	return drift, vol
}

// Generate builds a positive price path of p.Days points whose last value is
// exactly snap.Price. The same snapshot and params always give the same path.
func Generate(snap models.Snapshot, p Params) []float64 {
	n := p.Days
	if n <= 0 {
		return nil
	}

	drift, vol := DriftAndVol(snap.ChangePercent)
	seed := DeriveSeed(p.Seed, snap.Symbol)
	src := rand.NewPCG(seed, seed>>1|1)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: drift, Sigma: vol, Src: src}

	pct := clamp(snap.ChangePercent, -maxAbsChangePct, maxAbsChangePct)
	prices := make([]float64, n)
	prices[0] = snap.Price / (1 + pct/100)

	for i := 1; i < n; i++ {
		r := noise.Rand()

		if i > 1 {
			prev := (prices[i-1] - prices[i-2]) / prices[i-2]
			r += p.Momentum * prev
		}

		if p.ReversionWindow > 0 && i > p.ReversionWindow {
			avg := features.TrailingMean(prices[:i], i-1, p.ReversionWindow)
			r -= reversionPull * (prices[i-1] - avg) / avg
		}

		if i > 1 && math.Abs(r) > clusterThreshold*vol && rng.Float64() < clusterProb {
			r *= clusterMult
		}

		prices[i] = math.Max(prices[i-1]*(1+r), priceFloor)
	}

	pin(prices, snap.Price)
	if p.SmoothWindow > 1 {
		prices = features.MovingAverage(prices, p.SmoothWindow)
		pin(prices, snap.Price)
	}
	return prices
}

// pin rescales the path so its last value equals target.
func pin(prices []float64, target float64) {
	last := prices[len(prices)-1]
	if last <= 0 {
		return
	}
	k := target / last
	for i := range prices {
		prices[i] *= k
	}
	prices[len(prices)-1] = target
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
