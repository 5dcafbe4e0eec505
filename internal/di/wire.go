//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinInfluence/internal/usecase"
	"FinInfluence/pkg/config"
	"FinInfluence/pkg/server"
)

var analysisSet = wire.NewSet(
	// Observability
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,

	// Infrastructure clients
	ProvideKafkaProducer,
	ProvideClickHouseClient,
	ProvideRedisCache,
	ProvideMarketDataClient,

	// Pipeline
	ProvideHistoryProviders,
	ProvideSeriesBuilder,
	ProvideCausalityEngine,
	ProvideInfluenceClassifier,
	ProvideAssembler,
	ProvideResultCache,
	ProvideInfluenceAnalyzer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		analysisSet,

		// Transports
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideSnapshotHandler,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeAnalyzer wires the analysis pipeline without any transport, for
// one-shot runs.
func InitializeAnalyzer(cfg *config.Config) (*usecase.InfluenceAnalyzer, func(), error) {
	wire.Build(analysisSet)
	return nil, nil, nil
}
