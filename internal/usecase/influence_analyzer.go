package usecase

import (
	"context"
	"time"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
	domsvc "FinInfluence/internal/domain/service"
	"FinInfluence/internal/service/cache"
	"FinInfluence/internal/services/graph"
	applogger "FinInfluence/pkg/logger"
)

// InfluenceAnalyzer runs the whole pipeline for one snapshot set: history,
// both scorers, assembly. Results are memoized by snapshot content.
type InfluenceAnalyzer struct {
	builder    domsvc.SeriesBuilder
	causality  domsvc.EdgeScorer
	classifier domsvc.EdgeScorer
	assembler  *graph.Assembler
	cache      *cache.ResultCache
	publisher  domrepo.ResultPublisher
	metrics    domrepo.Metrics
	logger     *applogger.Logger
}

func NewInfluenceAnalyzer(
	builder domsvc.SeriesBuilder,
	causality domsvc.EdgeScorer,
	classifier domsvc.EdgeScorer,
	assembler *graph.Assembler,
	resultCache *cache.ResultCache,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *InfluenceAnalyzer {
	return &InfluenceAnalyzer{
		builder:    builder,
		causality:  causality,
		classifier: classifier,
		assembler:  assembler,
		cache:      resultCache,
		metrics:    metrics,
		logger:     log,
	}
}

// SetPublisher enables best-effort publication of every served result.
func (a *InfluenceAnalyzer) SetPublisher(p domrepo.ResultPublisher) { a.publisher = p }

// Analyze returns the influence graph for snaps, which must already be
// validated and sorted. Cached reports whether the graph was served from a
// cache tier; Timestamp is always the original computation time.
func (a *InfluenceAnalyzer) Analyze(ctx context.Context, snaps models.SnapshotSet) (*models.AnalysisResult, error) {
	start := time.Now()
	key := cache.Key(snaps)

	entry, cached, err := a.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*cache.Computed, error) {
		return a.compute(ctx, snaps)
	})
	if err != nil {
		kind := models.KindOf(err)
		a.metrics.RecordError(kind)
		a.logger.Error("influence analysis failed",
			applogger.String("key", key),
			applogger.Strings("symbols", snaps.Symbols()),
			applogger.String("error_type", kind),
			applogger.Error(err))
		return nil, err
	}

	a.metrics.RecordAnalysis(cached)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())

	res := &models.AnalysisResult{
		Key:       key,
		Graph:     entry.Graph,
		Summary:   models.Summarize(entry.Graph.Edges),
		Sources:   entry.Sources,
		Cached:    cached,
		Timestamp: entry.Timestamp,
	}
	a.logger.Info("influence analysis served",
		applogger.Int("symbols", len(snaps)),
		applogger.Int("edges", res.Summary.TotalEdges),
		applogger.Bool("cached", cached),
		applogger.Duration("duration_ms", time.Since(start)))

	a.publish(ctx, res)
	return res, nil
}

func (a *InfluenceAnalyzer) compute(ctx context.Context, snaps models.SnapshotSet) (*cache.Computed, error) {
	table, err := a.builder.Build(ctx, snaps)
	if err != nil {
		return nil, err
	}

	causal, err := a.causality.Score(ctx, table)
	if err != nil {
		return nil, err
	}
	predictive, err := a.classifier.Score(ctx, table)
	if err != nil {
		return nil, err
	}

	return &cache.Computed{
		Graph:   a.assembler.Assemble(snaps.Symbols(), causal, predictive),
		Sources: table.Sources,
	}, nil
}

func (a *InfluenceAnalyzer) publish(ctx context.Context, res *models.AnalysisResult) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishResult(ctx, res); err != nil {
		a.logger.Warn("result publish failed", applogger.String("key", res.Key), applogger.Error(err))
	}
}

// CacheSize reports the number of locally cached analyses.
func (a *InfluenceAnalyzer) CacheSize() int { return a.cache.Len() }

// ClearCache forgets every cached analysis, including the shared tier.
func (a *InfluenceAnalyzer) ClearCache(ctx context.Context) error { return a.cache.Clear(ctx) }
