package synth

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/util"
)

type Options struct {
	Params       Params
	MinRows      int           // tables shorter than this are rejected
	MinCloses    int           // provider results shorter than this are ignored
	FetchTimeout time.Duration // per symbol, per provider
}

func DefaultOptions() Options {
	return Options{
		Params:       DefaultParams(),
		MinRows:      50,
		MinCloses:    30,
		FetchTimeout: 10 * time.Second,
	}
}

// Synthesizer builds the aligned history table for a request. Real closes
// come from the configured providers in order; any symbol none of them can
// serve gets a deterministic synthetic walk anchored on its snapshot.
type Synthesizer struct {
	opts      Options
	providers []repository.HistoryProvider
	metrics   repository.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewSynthesizer(opts Options, providers []repository.HistoryProvider, metrics repository.Metrics, log *logger.Logger) *Synthesizer {
	return &Synthesizer{
		opts:      opts,
		providers: providers,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

// Build returns a table with one column per snapshot, every column exactly
// Params.Days long. Provider failures never surface; only a table shorter
// than MinRows is an error.
func (s *Synthesizer) Build(ctx context.Context, snaps models.SnapshotSet) (*models.SeriesTable, error) {
	start := time.Now()
	n := s.opts.Params.Days

	cols := make([][]float64, len(snaps))
	srcs := make([]models.DataSource, len(snaps))

	g, gctx := errgroup.WithContext(ctx)
	for i, snap := range snaps {
		g.Go(func() error {
			cols[i], srcs[i] = s.history(gctx, snap)
			return nil
		})
	}
	_ = g.Wait()

	table := &models.SeriesTable{
		Dates:   util.DailyAxis(s.now(), n),
		Symbols: snaps.Symbols(),
		Columns: make(map[string][]float64, len(snaps)),
		Sources: make(map[string]models.DataSource, len(snaps)),
	}
	for i, snap := range snaps {
		table.Columns[snap.Symbol] = FitLength(cols[i], n)
		table.Sources[snap.Symbol] = srcs[i]
		s.metrics.RecordDataSource(srcs[i])
	}

	s.metrics.RecordLatency("synthesize", time.Since(start).Seconds())

	if table.Rows() < s.opts.MinRows {
		return nil, &models.InsufficientDataError{Rows: table.Rows(), Required: s.opts.MinRows}
	}
	return table, nil
}

func (s *Synthesizer) history(ctx context.Context, snap models.Snapshot) ([]float64, models.DataSource) {
	for _, p := range s.providers {
		closes, err := s.fetch(ctx, p, snap.Symbol)
		if err != nil {
			var te *models.ProviderTimeoutError
			switch {
			case errors.As(err, &te):
				s.logger.Warn("history provider timed out",
					logger.String("symbol", snap.Symbol),
					logger.String("source", string(p.Source())),
					logger.Duration("timeout_ms", te.Timeout))
			case errors.Is(err, models.ErrNoHistory):
				s.logger.Debug("no history from provider",
					logger.String("symbol", snap.Symbol),
					logger.String("source", string(p.Source())))
			default:
				s.logger.Warn("history provider failed",
					logger.String("symbol", snap.Symbol),
					logger.String("source", string(p.Source())),
					logger.Error(err))
			}
			continue
		}
		if len(closes) < s.opts.MinCloses || !usable(closes) {
			s.logger.Debug("insufficient provider history",
				logger.String("symbol", snap.Symbol),
				logger.String("source", string(p.Source())),
				logger.Int("points", len(closes)))
			continue
		}
		return AlignCloses(closes, s.opts.Params.Days), p.Source()
	}

	s.logger.Debug("synthesizing history",
		logger.String("symbol", snap.Symbol),
		logger.Float64("price", snap.Price),
		logger.Float64("change_percent", snap.ChangePercent))
	return Generate(snap, s.opts.Params), models.SourceSynthetic
}

func (s *Synthesizer) fetch(ctx context.Context, p repository.HistoryProvider, symbol string) ([]float64, error) {
	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	closes, err := p.FetchCloses(fctx, symbol)
	if err != nil && errors.Is(fctx.Err(), context.DeadlineExceeded) {
		return nil, &models.ProviderTimeoutError{Symbol: symbol, Timeout: s.opts.FetchTimeout, Err: err}
	}
	return closes, err
}

func usable(closes []float64) bool {
	for _, c := range closes {
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
