package service

import (
	"context"

	"FinInfluence/internal/domain/models"
)

// CausalityTest runs a lag-exclusion F-test asking whether lags of source
// improve prediction of target. It returns one p-value per lag 1..maxLag.
// Inputs are already cleaned and differenced.
type CausalityTest interface {
	PValues(target, source []float64, maxLag int) ([]float64, error)
}

// Classifier fits a binary model on feature rows and reports a non-negative
// importance per feature column.
type Classifier interface {
	Importances(features [][]float64, labels []bool) ([]float64, error)
}

// SeriesBuilder turns validated snapshots into an aligned history table.
type SeriesBuilder interface {
	Build(ctx context.Context, snaps models.SnapshotSet) (*models.SeriesTable, error)
}

// EdgeScorer turns a series table into candidate edges of one method.
type EdgeScorer interface {
	Score(ctx context.Context, table *models.SeriesTable) ([]models.Edge, error)
}
