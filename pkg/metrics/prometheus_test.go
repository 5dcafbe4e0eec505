package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
)

var (
	_ repository.Metrics = (*Recorder)(nil)
	_ repository.Metrics = Nop{}
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordAnalysis(false)
	r.RecordAnalysis(true)
	r.RecordAnalysis(true)
	r.RecordCacheSize(7)
	r.RecordDataSource(models.SourceSynthetic)
	r.RecordEdges(models.MethodCausality, 4)
	r.RecordEdges(models.MethodClassifier, 2)
	r.RecordSkipped("causality_short")
	r.RecordError("InputError")
	r.RecordLatency("analyze", 0.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("false")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.cacheSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dataSources.WithLabelValues("synthetic")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.edges.WithLabelValues("causality")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.edges.WithLabelValues("classifier")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues("causality_short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("InputError")))

	n, err := testutil.GatherAndCount(reg, "influence_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
