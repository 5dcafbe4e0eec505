package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FinInfluence/internal/domain/repository"
	domsvc "FinInfluence/internal/domain/service"
	"FinInfluence/internal/handler/api"
	internalrepo "FinInfluence/internal/repository"
	"FinInfluence/internal/service/cache"
	"FinInfluence/internal/service/marketdata"
	"FinInfluence/internal/service/ratelimit"
	"FinInfluence/internal/services/analytics"
	"FinInfluence/internal/services/graph"
	"FinInfluence/internal/services/synth"
	"FinInfluence/internal/usecase"
	pkgcache "FinInfluence/pkg/cache"
	pkgch "FinInfluence/pkg/clickhouse"
	"FinInfluence/pkg/config"
	xhttp "FinInfluence/pkg/http"
	pkgkafka "FinInfluence/pkg/kafka"
	applogger "FinInfluence/pkg/logger"
	"FinInfluence/pkg/metrics"
	"FinInfluence/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry shared by every recorder.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegisterer(reg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
// With log.collect_topic set, aggregated error logs ride the same producer.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, log *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithProducerMetrics(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.CollectTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Log.CollectEvery,
			Topic:        cfg.Log.CollectTopic,
			Publisher:    producer,
		})
	}

	cleanup := func() {
		log.RemoveCollector()
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the store is off.
func ProvideClickHouseClient(cfg *config.Config, log *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideRedisCache creates the shared result cache tier, or nil when off.
func ProvideRedisCache(cfg *config.Config, log *applogger.Logger) (*pkgcache.RedisCache, func(), error) {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		return nil, func() {}, nil
	}
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(rc.Addr),
		pkgcache.WithRedisPassword(rc.Password),
		pkgcache.WithRedisDB(rc.DB),
		pkgcache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		if err := redis.Close(); err != nil {
			log.Warn("redis close error", applogger.Error(err))
		}
	}
	return redis, cleanup, nil
}

// ProvideMarketDataClient creates the market data history client, or nil
// when no base URL is configured.
func ProvideMarketDataClient(cfg *config.Config, log *applogger.Logger) *marketdata.Client {
	md := cfg.MarketData
	if md.BaseURL == "" {
		return nil
	}
	return marketdata.NewClient(marketdata.Config{
		BaseURL:      md.BaseURL,
		Path:         md.Path,
		Timeframe:    md.Timeframe,
		Interval:     md.Interval,
		Timeout:      md.Timeout,
		MinCloses:    md.MinCloses,
		RPS:          md.RPS,
		Burst:        md.Burst,
		BreakerTrips: md.BreakerTrips,
		BreakerOpen:  md.BreakerOpen,
	}, log)
}

// ProvideHistoryProviders lists history sources in priority order: the
// ClickHouse store when enabled, then the market data service.
func ProvideHistoryProviders(cfg *config.Config, ch *pkgch.Client, md *marketdata.Client, log *applogger.Logger) ([]repository.HistoryProvider, error) {
	var providers []repository.HistoryProvider

	if ch != nil {
		store, err := internalrepo.NewCHHistory(ch, cfg.ClickHouse.Table, cfg.Analysis.Days, log)
		if err != nil {
			return nil, fmt.Errorf("clickhouse history: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		providers = append(providers, store)
	}

	if md != nil {
		providers = append(providers, md)
	}
	return providers, nil
}

// ProvideSeriesBuilder creates the history synthesizer.
func ProvideSeriesBuilder(
	cfg *config.Config,
	providers []repository.HistoryProvider,
	m repository.Metrics,
	log *applogger.Logger,
) domsvc.SeriesBuilder {
	a := cfg.Analysis
	return synth.NewSynthesizer(synth.Options{
		Params: synth.Params{
			Days:            a.Days,
			Seed:            a.Seed,
			Momentum:        a.Momentum,
			ReversionWindow: a.ReversionWindow,
			SmoothWindow:    a.SmoothWindow,
		},
		MinRows:      a.MinRows,
		MinCloses:    cfg.MarketData.MinCloses,
		FetchTimeout: cfg.MarketData.Timeout,
	}, providers, m, log)
}

// ProvideCausalityEngine creates the Granger causality scorer.
func ProvideCausalityEngine(cfg *config.Config, m repository.Metrics, log *applogger.Logger) *analytics.CausalityEngine {
	opts := analytics.DefaultCausalityOptions()
	opts.MaxLag = cfg.Analysis.MaxLag
	opts.Significance = cfg.Analysis.Significance
	opts.Workers = cfg.Analysis.Workers
	return analytics.NewCausalityEngine(analytics.GrangerFTest{}, opts, m, log)
}

// ProvideInfluenceClassifier creates the naive Bayes importance scorer.
func ProvideInfluenceClassifier(cfg *config.Config, m repository.Metrics, log *applogger.Logger) *analytics.InfluenceClassifier {
	opts := analytics.DefaultClassifierOptions()
	opts.TopK = cfg.Analysis.TopK
	opts.MinImportance = cfg.Analysis.MinImportance
	return analytics.NewInfluenceClassifier(analytics.NBClassifier{VarSmoothing: 1e-9}, opts, m, log)
}

// ProvideAssembler creates the graph assembler.
func ProvideAssembler(cfg *config.Config) *graph.Assembler {
	return graph.NewAssembler(cfg.Analysis.MaxEdges)
}

// ProvideResultCache creates the result cache, backed by Redis when enabled.
func ProvideResultCache(cfg *config.Config, redis *pkgcache.RedisCache, m repository.Metrics, log *applogger.Logger) *cache.ResultCache {
	opts := cache.Options{Capacity: cfg.Cache.Capacity}
	if redis != nil {
		opts.Remote = redis
		opts.RemoteTTL = cfg.Cache.Redis.TTL
	}
	return cache.NewResultCache(opts, m, log)
}

// ProvideInfluenceAnalyzer creates the analysis use case. Results are
// published to the result topic when a producer is available.
func ProvideInfluenceAnalyzer(
	cfg *config.Config,
	builder domsvc.SeriesBuilder,
	causality *analytics.CausalityEngine,
	classifier *analytics.InfluenceClassifier,
	assembler *graph.Assembler,
	resultCache *cache.ResultCache,
	producer *pkgkafka.Producer,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.InfluenceAnalyzer {
	a := usecase.NewInfluenceAnalyzer(builder, causality, classifier, assembler, resultCache, m, log)
	if producer != nil && cfg.Kafka.ResultTopic != "" {
		a.SetPublisher(internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic))
	}
	return a
}

// ProvideHTTPHandler collects every route group served by the API.
func ProvideHTTPHandler(log *applogger.Logger, analyzer *usecase.InfluenceAnalyzer, md *marketdata.Client) xhttp.Handler {
	var upstream api.BreakerState
	if md != nil {
		upstream = md
	}
	return xhttp.Handlers{
		api.NewInfluenceEchoHandler(log, analyzer, upstream),
	}
}

// ProvideHTTPServer creates the Echo server with metrics and per-client
// rate limiting.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, reg *prometheus.Registry, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	if rl := cfg.Server.RateLimit; rl.RPS > 0 {
		opts = append(opts, xhttp.WithRateLimit(ratelimit.New(rl.RPS, rl.Burst)))
	}
	return xhttp.NewServer(handler, log, opts...)
}

// ProvideKafkaConsumer creates the request consumer, or nil when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestTopic == "" {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSnapshotHandler creates the handler for the request topic.
func ProvideSnapshotHandler(
	cfg *config.Config,
	analyzer *usecase.InfluenceAnalyzer,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.KafkaSnapshotHandler {
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.RequestTopic, analyzer, m, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler *usecase.KafkaSnapshotHandler,
) *server.App {
	if consumer == nil {
		return server.New(cfg, log, httpServer, nil, nil)
	}
	return server.New(cfg, log, httpServer, consumer, handler)
}
