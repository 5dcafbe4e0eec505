package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinInfluence/internal/domain/models"
)

// Recorder implements domain/repository.Metrics using Prometheus.
type Recorder struct {
	analyses    *prometheus.CounterVec
	cacheSize   prometheus.Gauge
	dataSources *prometheus.CounterVec
	edges       *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_analyses_total",
				Help: "Influence analyses served, by cache outcome",
			},
			[]string{"cached"},
		),
		cacheSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "influence_cache_entries",
				Help: "Entries currently held by the in-process result cache",
			},
		),
		dataSources: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_series_sources_total",
				Help: "Series built per data source",
			},
			[]string{"source"},
		),
		edges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_edges_total",
				Help: "Edges emitted by each scoring method before assembly",
			},
			[]string{"method"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_skipped_total",
				Help: "Pairs or targets skipped, by stage",
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "influence_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAnalysis(cached bool) {
	r.analyses.WithLabelValues(strconv.FormatBool(cached)).Inc()
}

func (r *Recorder) RecordCacheSize(n int) {
	r.cacheSize.Set(float64(n))
}

func (r *Recorder) RecordDataSource(source models.DataSource) {
	r.dataSources.WithLabelValues(string(source)).Inc()
}

func (r *Recorder) RecordEdges(method models.Method, n int) {
	r.edges.WithLabelValues(string(method)).Add(float64(n))
}

func (r *Recorder) RecordSkipped(stage string) {
	r.skipped.WithLabelValues(stage).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAnalysis(bool)                {}
func (Nop) RecordCacheSize(int)                {}
func (Nop) RecordDataSource(models.DataSource) {}
func (Nop) RecordEdges(models.Method, int)     {}
func (Nop) RecordSkipped(string)               {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
