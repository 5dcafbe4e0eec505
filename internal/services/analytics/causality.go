package analytics

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
	domsvc "FinInfluence/internal/domain/service"
	"FinInfluence/internal/services/features"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/util"
)

type CausalityOptions struct {
	MaxLag       int     // upper bound; the run uses min(MaxLag, rows/10)
	Significance float64 // accept when min p-value is below this
	MinExtraObs  int     // differenced observations required beyond maxlag
	Workers      int
}

func DefaultCausalityOptions() CausalityOptions {
	return CausalityOptions{MaxLag: 5, Significance: 0.10, MinExtraObs: 10, Workers: 8}
}

// CausalityEngine scores every ordered pair of the table with a lag-exclusion
// test and emits an edge for each significant pair.
type CausalityEngine struct {
	test    domsvc.CausalityTest
	opts    CausalityOptions
	metrics repository.Metrics
	logger  *logger.Logger
}

func NewCausalityEngine(test domsvc.CausalityTest, opts CausalityOptions, metrics repository.Metrics, log *logger.Logger) *CausalityEngine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &CausalityEngine{test: test, opts: opts, metrics: metrics, logger: log}
}

// MaxLag is the lag bound used for a table with the given row count.
func (e *CausalityEngine) MaxLag(rows int) int {
	return min(e.opts.MaxLag, rows/10)
}

// Score returns edges in (source, target) order over the table's sorted
// symbols, independent of how the pairs were scheduled.
func (e *CausalityEngine) Score(ctx context.Context, table *models.SeriesTable) ([]models.Edge, error) {
	start := time.Now()
	maxLag := e.MaxLag(table.Rows())
	if maxLag < 1 {
		return nil, nil
	}

	type pair struct{ source, target string }
	var pairs []pair
	for _, s := range table.Symbols {
		for _, t := range table.Symbols {
			if s != t {
				pairs = append(pairs, pair{s, t})
			}
		}
	}

	slots := make([]*models.Edge, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			edge, err := e.scorePair(table.Column(p.source), table.Column(p.target), p.source, p.target, maxLag)
			if err != nil {
				var pce *models.PairComputationError
				if errors.As(err, &pce) {
					e.metrics.RecordSkipped("causality_error")
					e.logger.Debug("causality pair skipped",
						logger.String("source", p.source),
						logger.String("target", p.target),
						logger.Error(err))
					return nil
				}
				return err
			}
			slots[i] = edge
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	edges := make([]models.Edge, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			edges = append(edges, *s)
		}
	}

	e.metrics.RecordEdges(models.MethodCausality, len(edges))
	e.metrics.RecordLatency("causality", time.Since(start).Seconds())
	e.logger.Debug("causality scoring done",
		logger.Int("pairs", len(pairs)),
		logger.Int("edges", len(edges)),
		logger.Int("max_lag", maxLag))
	return edges, nil
}

// scorePair returns (nil, nil) for a pair that is skipped or not significant.
func (e *CausalityEngine) scorePair(srcCol, tgtCol []float64, source, target string, maxLag int) (*models.Edge, error) {
	tgt, src := features.DropNonFinite(tgtCol, srcCol)
	dTgt, dSrc := features.Diff(tgt), features.Diff(src)
	if len(dTgt) < maxLag+e.opts.MinExtraObs {
		e.metrics.RecordSkipped("causality_short")
		return nil, nil
	}

	pvals, err := e.test.PValues(dTgt, dSrc, maxLag)
	if err != nil {
		return nil, &models.PairComputationError{Source: source, Target: target, Err: err}
	}
	if len(pvals) == 0 || !features.Finite(pvals...) {
		return nil, &models.PairComputationError{Source: source, Target: target, Err: errors.New("non-finite p-value")}
	}

	minP := floats.Min(pvals)
	if minP >= e.opts.Significance {
		return nil, nil
	}
	avgP := stat.Mean(pvals, nil)

	pv := util.RoundTo(minP, 4)
	avg := util.RoundTo(avgP, 4)
	return &models.Edge{
		Source:      source,
		Target:      target,
		Method:      models.MethodCausality,
		Value:       util.RoundTo(1-minP, 3),
		Correlation: util.RoundTo(features.Pearson(src, tgt), 3),
		PValue:      &pv,
		AvgPValue:   &avg,
	}, nil
}
