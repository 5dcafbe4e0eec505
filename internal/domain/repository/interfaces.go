package repository

import (
	"context"

	"FinInfluence/internal/domain/models"
)

// HistoryProvider supplies daily closes for a symbol, oldest first. Providers
// return models.ErrNoHistory (possibly wrapped) when they have nothing.
type HistoryProvider interface {
	Source() models.DataSource
	FetchCloses(ctx context.Context, symbol string) ([]float64, error)
}

// ResultPublisher fans analysis results out to other systems.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res *models.AnalysisResult) error
	Close() error
}

type Metrics interface {
	RecordAnalysis(cached bool)
	RecordCacheSize(n int)
	RecordDataSource(source models.DataSource)
	RecordEdges(method models.Method, n int)
	RecordSkipped(stage string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx so published results carry the id of the
// request that produced them.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
