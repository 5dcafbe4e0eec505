package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
	domsvc "FinInfluence/internal/domain/service"
	"FinInfluence/internal/service/cache"
	"FinInfluence/internal/services/analytics"
	"FinInfluence/internal/services/graph"
	"FinInfluence/internal/services/synth"
	pkgkafka "FinInfluence/pkg/kafka"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/metrics"
	"FinInfluence/pkg/util"
)

func newAnalyzer(builder domsvc.SeriesBuilder) *InfluenceAnalyzer {
	m := metrics.Nop{}
	l := logger.Nop()
	if builder == nil {
		builder = synth.NewSynthesizer(synth.DefaultOptions(), nil, m, l)
	}
	return NewInfluenceAnalyzer(
		builder,
		analytics.NewCausalityEngine(analytics.GrangerFTest{}, analytics.DefaultCausalityOptions(), m, l),
		analytics.NewInfluenceClassifier(analytics.NBClassifier{VarSmoothing: 1e-9}, analytics.DefaultClassifierOptions(), m, l),
		graph.NewAssembler(20),
		cache.NewResultCache(cache.Options{Capacity: 10}, m, l),
		m, l,
	)
}

func parse(t *testing.T, body string) models.SnapshotSet {
	t.Helper()
	snaps, err := ParseSnapshots(context.Background(), []byte(body))
	require.NoError(t, err)
	return snaps
}

func TestParseSnapshotsAcceptsBothShapes(t *testing.T) {
	wrapped := parse(t, `{"stock_prices":{"MSFT":{"price":300,"changePercent":-1},"AAPL":{"price":150,"changePercent":2}}}`)
	bare := parse(t, `{"MSFT":{"price":300,"changePercent":-1},"AAPL":{"price":150,"changePercent":2}}`)

	assert.Equal(t, wrapped, bare)
	require.Len(t, wrapped, 2)
	assert.Equal(t, []string{"AAPL", "MSFT"}, wrapped.Symbols())
	assert.Equal(t, 2.0, wrapped[0].ChangePercent)
}

func TestParseSnapshotsDefaultsChangePercent(t *testing.T) {
	snaps := parse(t, `{"A":{"price":10},"B":{"price":20,"volume":1000}}`)
	assert.Zero(t, snaps[0].ChangePercent)
	assert.Equal(t, 1000.0, snaps[1].Volume)
}

func TestParseSnapshotsRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		msg  string
	}{
		"scenario C":       {`{}`, MsgNoPrices},
		"empty wrapper":    {`{"stock_prices":{}}`, MsgNoPrices},
		"null wrapper":     {`{"stock_prices":null}`, MsgNoPrices},
		"scenario B":       {`{"A":{"price":100,"changePercent":0}}`, MsgTooFew},
		"malformed":        {`{"A":`, "invalid JSON body"},
		"not an object":    {`[1,2]`, "invalid JSON body"},
		"zero price":       {`{"A":{"price":0},"B":{"price":1}}`, "price must be greater than 0"},
		"missing price":    {`{"A":{"changePercent":1},"B":{"price":1}}`, "price is required"},
		"string price":     {`{"A":{"price":"abc"},"B":{"price":1}}`, "invalid snapshot for A"},
		"blank symbol":     {`{"  ":{"price":1},"A":{"price":2}}`, "empty symbol"},
		"wrapper not dict": {`{"stock_prices":[1]}`, "stock_prices must be an object"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSnapshots(context.Background(), []byte(tc.body))
			var ie *models.InputError
			require.ErrorAs(t, err, &ie)
			assert.Contains(t, ie.Message, tc.msg)
		})
	}
}

func TestParseSnapshotsKeepsKeysVerbatim(t *testing.T) {
	snaps := parse(t, `{"aapl":{"price":150},"AAPL":{"price":151},"Msft":{"price":300}}`)
	assert.Equal(t, []string{"AAPL", "Msft", "aapl"}, snaps.Symbols())
}

func TestAnalyzeReturnsRequestedSymbolsAsNodes(t *testing.T) {
	a := newAnalyzer(nil)
	res, err := a.Analyze(context.Background(), parse(t, `{"aapl":{"price":150,"changePercent":2},"Msft":{"price":300,"changePercent":-1}}`))
	require.NoError(t, err)
	assertGraphInvariants(t, res, "Msft", "aapl")
	assert.Contains(t, res.Sources, "aapl")
	assert.Contains(t, res.Sources, "Msft")
	assert.True(t, strings.HasPrefix(res.Key, "Msft:300.00"), res.Key)
}

func assertGraphInvariants(t *testing.T, res *models.AnalysisResult, symbols ...string) {
	t.Helper()
	ids := make([]string, len(res.Graph.Nodes))
	for i, n := range res.Graph.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, symbols, ids)
	assert.LessOrEqual(t, len(res.Graph.Edges), 20)

	valid := map[string]bool{}
	for _, s := range symbols {
		valid[s] = true
	}
	seen := map[[2]string]bool{}
	for _, e := range res.Graph.Edges {
		assert.NotEqual(t, e.Source, e.Target)
		assert.True(t, valid[e.Source] && valid[e.Target], "%s->%s", e.Source, e.Target)
		pair := [2]string{e.Source, e.Target}
		assert.False(t, seen[pair], "duplicate %v", pair)
		seen[pair] = true
		assert.GreaterOrEqual(t, e.Value, 0.0)
		assert.LessOrEqual(t, e.Value, 1.0)
	}
	assert.Equal(t, models.Summarize(res.Graph.Edges), res.Summary)
}

func TestScenarioA(t *testing.T) {
	a := newAnalyzer(nil)
	res, err := a.Analyze(context.Background(), parse(t, `{"A":{"price":100,"changePercent":5},"B":{"price":50,"changePercent":-3}}`))
	require.NoError(t, err)
	assertGraphInvariants(t, res, "A", "B")
	assert.False(t, res.Cached)
	assert.Equal(t, models.SourceSynthetic, res.Sources["A"])
	assert.Equal(t, "A:100.00:5.0_B:50.00:-3.0", res.Key)
}

func TestCacheIdempotence(t *testing.T) {
	a := newAnalyzer(nil)
	snaps := parse(t, `{"AAPL":{"price":150,"changePercent":2},"MSFT":{"price":300,"changePercent":-1},"NVDA":{"price":420,"changePercent":4.5}}`)

	first, err := a.Analyze(context.Background(), snaps)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), snaps)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Graph.Edges, second.Graph.Edges)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
	assert.Equal(t, 1, a.CacheSize())
}

func TestDeterminismAcrossFreshAnalyzers(t *testing.T) {
	body := `{"AAPL":{"price":150,"changePercent":2},"MSFT":{"price":300,"changePercent":-1},"NVDA":{"price":420,"changePercent":4.5},"TSLA":{"price":250,"changePercent":-6}}`

	run := func() []byte {
		res, err := newAnalyzer(nil).Analyze(context.Background(), parse(t, body))
		require.NoError(t, err)
		assertGraphInvariants(t, res, "AAPL", "MSFT", "NVDA", "TSLA")
		b, err := json.Marshal(res.Response().Edges)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestEdgeCapWithManySymbols(t *testing.T) {
	var parts []string
	for i, sym := range []string{"AA", "BB", "CC", "DD", "EE", "FF", "GG", "HH"} {
		parts = append(parts, `"`+sym+`":{"price":`+strings.Repeat("1", i+1)+`,"changePercent":`+[]string{"1", "-2", "3", "-4", "5", "-6", "7", "-8"}[i]+`}`)
	}
	res, err := newAnalyzer(nil).Analyze(context.Background(), parse(t, "{"+strings.Join(parts, ",")+"}"))
	require.NoError(t, err)
	assertGraphInvariants(t, res, "AA", "BB", "CC", "DD", "EE", "FF", "GG", "HH")
}

type tableBuilder struct {
	table *models.SeriesTable
	err   error
}

func (b tableBuilder) Build(context.Context, models.SnapshotSet) (*models.SeriesTable, error) {
	return b.table, b.err
}

func TestScenarioDShortPairIsSkipped(t *testing.T) {
	n := 180
	walk := func(start, step float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = start + step*float64(i) + math.Sin(float64(i)*step)
		}
		return out
	}
	sparse := walk(30, 0.7)
	for i := 8; i < n; i++ {
		sparse[i] = math.NaN()
	}
	table := &models.SeriesTable{
		Dates:   util.DailyAxis(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), n),
		Symbols: []string{"A", "B", "C"},
		Columns: map[string][]float64{"A": walk(100, 0.3), "B": walk(50, 1.1), "C": sparse},
		Sources: map[string]models.DataSource{"A": models.SourceSynthetic, "B": models.SourceSynthetic, "C": models.SourceSynthetic},
	}

	a := newAnalyzer(tableBuilder{table: table})
	res, err := a.Analyze(context.Background(), parse(t, `{"A":{"price":1},"B":{"price":2},"C":{"price":3}}`))
	require.NoError(t, err)
	assertGraphInvariants(t, res, "A", "B", "C")
	for _, e := range res.Graph.Edges {
		assert.NotEqual(t, "C", e.Source)
		assert.NotEqual(t, "C", e.Target)
	}
}

func TestAnalyzeSurfacesInsufficientData(t *testing.T) {
	a := newAnalyzer(tableBuilder{err: &models.InsufficientDataError{Rows: 30, Required: 50}})
	_, err := a.Analyze(context.Background(), parse(t, `{"A":{"price":1},"B":{"price":2}}`))
	assert.Equal(t, "InsufficientDataError", models.KindOf(err))
	assert.Zero(t, a.CacheSize())
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []*models.AnalysisResult
	ids     []string
	err     error
}

func (p *recordingPublisher) PublishResult(ctx context.Context, res *models.AnalysisResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	p.ids = append(p.ids, domrepo.RequestIDFromContext(ctx))
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishIsBestEffort(t *testing.T) {
	a := newAnalyzer(nil)
	pub := &recordingPublisher{err: errors.New("broker down")}
	a.SetPublisher(pub)

	res, err := a.Analyze(context.Background(), parse(t, `{"A":{"price":1},"B":{"price":2}}`))
	require.NoError(t, err)
	require.Len(t, pub.results, 1)
	assert.Same(t, res, pub.results[0])
}

func TestKafkaSnapshotHandler(t *testing.T) {
	a := newAnalyzer(nil)
	pub := &recordingPublisher{}
	a.SetPublisher(pub)
	h := NewKafkaSnapshotHandler("influence.requests", a, metrics.Nop{}, logger.Nop())
	assert.Equal(t, "influence.requests", h.Topic())

	err := h.Handle(context.Background(), []byte("k1"),
		[]byte(`{"request_id":"r-42","stock_prices":{"A":{"price":100,"changePercent":5},"B":{"price":50,"changePercent":-3}}}`))
	require.NoError(t, err)
	require.Len(t, pub.ids, 1)
	assert.Equal(t, "r-42", pub.ids[0])

	err = h.Handle(context.Background(), []byte("k2"), []byte(`{"stock_prices":{"A":{"price":100}}}`))
	var perm *pkgkafka.PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, "InputError", models.KindOf(err))

	err = h.Handle(context.Background(), nil, []byte(`not json`))
	require.ErrorAs(t, err, &perm)
}
