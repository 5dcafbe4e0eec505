// Maintained by hand in the layout wire emits for the injectors in wire.go.
// Keep the two files in step when a provider changes; running
// `go run github.com/google/wire/cmd/wire` in this directory regenerates it.

//go:build !wireinject
// +build !wireinject

package di

import (
	"FinInfluence/internal/usecase"
	"FinInfluence/pkg/config"
	"FinInfluence/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup, err := ProvideClickHouseClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	marketdataClient := ProvideMarketDataClient(cfg, logger)
	v, err := ProvideHistoryProviders(cfg, client, marketdataClient, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	registry := ProvideRegistry()
	metrics := ProvideMetrics(registry)
	seriesBuilder := ProvideSeriesBuilder(cfg, v, metrics, logger)
	causalityEngine := ProvideCausalityEngine(cfg, metrics, logger)
	influenceClassifier := ProvideInfluenceClassifier(cfg, metrics, logger)
	assembler := ProvideAssembler(cfg)
	redisCache, cleanup2, err := ProvideRedisCache(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	resultCache := ProvideResultCache(cfg, redisCache, metrics, logger)
	producer, cleanup3, err := ProvideKafkaProducer(cfg, registry, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	influenceAnalyzer := ProvideInfluenceAnalyzer(cfg, seriesBuilder, causalityEngine, influenceClassifier, assembler, resultCache, producer, metrics, logger)
	handler := ProvideHTTPHandler(logger, influenceAnalyzer, marketdataClient)
	httpServer := ProvideHTTPServer(cfg, handler, registry, logger)
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	kafkaSnapshotHandler := ProvideSnapshotHandler(cfg, influenceAnalyzer, metrics, logger)
	app := ProvideApp(cfg, logger, httpServer, consumer, kafkaSnapshotHandler)
	return app, func() {
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}

// InitializeAnalyzer wires the analysis pipeline without any transport, for
// one-shot runs.
func InitializeAnalyzer(cfg *config.Config) (*usecase.InfluenceAnalyzer, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup, err := ProvideClickHouseClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	marketdataClient := ProvideMarketDataClient(cfg, logger)
	v, err := ProvideHistoryProviders(cfg, client, marketdataClient, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	registry := ProvideRegistry()
	metrics := ProvideMetrics(registry)
	seriesBuilder := ProvideSeriesBuilder(cfg, v, metrics, logger)
	causalityEngine := ProvideCausalityEngine(cfg, metrics, logger)
	influenceClassifier := ProvideInfluenceClassifier(cfg, metrics, logger)
	assembler := ProvideAssembler(cfg)
	redisCache, cleanup2, err := ProvideRedisCache(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	resultCache := ProvideResultCache(cfg, redisCache, metrics, logger)
	producer, cleanup3, err := ProvideKafkaProducer(cfg, registry, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	influenceAnalyzer := ProvideInfluenceAnalyzer(cfg, seriesBuilder, causalityEngine, influenceClassifier, assembler, resultCache, producer, metrics, logger)
	return influenceAnalyzer, func() {
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
