package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
	domsvc "FinInfluence/internal/domain/service"
	"FinInfluence/internal/services/features"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/util"
)

type ClassifierOptions struct {
	TopK          int
	MinImportance float64
	MinRows       int
	MinPerClass   int
	ValueScale    float64
	MaxValue      float64
}

func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{
		TopK:          3,
		MinImportance: 0.001,
		MinRows:       10,
		MinPerClass:   2,
		ValueScale:    10,
		MaxValue:      0.99,
	}
}

// InfluenceClassifier predicts each symbol's next-period direction from the
// other symbols' current returns and turns the strongest features into edges.
type InfluenceClassifier struct {
	clf     domsvc.Classifier
	opts    ClassifierOptions
	metrics repository.Metrics
	logger  *logger.Logger
}

func NewInfluenceClassifier(clf domsvc.Classifier, opts ClassifierOptions, metrics repository.Metrics, log *logger.Logger) *InfluenceClassifier {
	return &InfluenceClassifier{clf: clf, opts: opts, metrics: metrics, logger: log}
}

func (c *InfluenceClassifier) Score(ctx context.Context, table *models.SeriesTable) ([]models.Edge, error) {
	start := time.Now()
	symbols := table.Symbols
	if len(symbols) < 2 {
		return nil, nil
	}

	returns := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		returns[s] = features.PctReturns(table.Column(s))
	}
	rows := completeRows(returns, symbols)

	var edges []models.Edge
	for _, target := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edges = append(edges, c.scoreTarget(target, symbols, returns, rows)...)
	}

	c.metrics.RecordEdges(models.MethodClassifier, len(edges))
	c.metrics.RecordLatency("classifier", time.Since(start).Seconds())
	return edges, nil
}

func (c *InfluenceClassifier) scoreTarget(target string, symbols []string, returns map[string][]float64, rows []int) []models.Edge {
	feats := make([]string, 0, len(symbols)-1)
	for _, s := range symbols {
		if s != target {
			feats = append(feats, s)
		}
	}

	// Features at row k predict the target's direction at the next usable row.
	n := len(rows) - 1
	if n < c.opts.MinRows {
		c.metrics.RecordSkipped("classifier_short")
		return nil
	}
	x := make([][]float64, n)
	y := make([]bool, n)
	ups := 0
	for k := 0; k < n; k++ {
		row := make([]float64, len(feats))
		for j, f := range feats {
			row[j] = returns[f][rows[k]]
		}
		x[k] = row
		y[k] = returns[target][rows[k+1]] > 0
		if y[k] {
			ups++
		}
	}
	if ups < c.opts.MinPerClass || n-ups < c.opts.MinPerClass {
		c.metrics.RecordSkipped("classifier_degenerate")
		c.logger.Debug("classifier target skipped: degenerate classes",
			logger.String("target", target),
			logger.Int("up", ups),
			logger.Int("down", n-ups))
		return nil
	}

	imp, err := c.clf.Importances(x, y)
	if err != nil {
		c.metrics.RecordSkipped("classifier_error")
		c.logger.Debug("classifier fit failed",
			logger.String("target", target),
			logger.Error(&models.PairComputationError{Source: "*", Target: target, Err: err}))
		return nil
	}

	order := make([]int, len(feats))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return imp[order[a]] > imp[order[b]] })
	if len(order) > c.opts.TopK {
		order = order[:c.opts.TopK]
	}

	labels := make([]float64, n)
	for k, up := range y {
		if up {
			labels[k] = 1
		}
	}

	var edges []models.Edge
	col := make([]float64, n)
	for _, j := range order {
		if math.IsNaN(imp[j]) || imp[j] < c.opts.MinImportance {
			continue
		}
		for k := range x {
			col[k] = x[k][j]
		}
		importance := util.RoundTo(imp[j], 4)
		edges = append(edges, models.Edge{
			Source:      feats[j],
			Target:      target,
			Method:      models.MethodClassifier,
			Value:       util.RoundTo(math.Min(imp[j]*c.opts.ValueScale, c.opts.MaxValue), 3),
			Correlation: util.RoundTo(features.Pearson(col, labels), 3),
			Importance:  &importance,
		})
	}
	return edges
}

// completeRows lists the return indexes where every symbol has a finite value.
func completeRows(returns map[string][]float64, symbols []string) []int {
	n := len(returns[symbols[0]])
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ok := true
		for _, s := range symbols {
			r := returns[s]
			if i >= len(r) || !features.Finite(r[i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}
