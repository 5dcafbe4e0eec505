package models

import "time"

// DataSource records where a symbol's history came from.
type DataSource string

const (
	SourceProvider  DataSource = "provider"
	SourceStore     DataSource = "store"
	SourceSynthetic DataSource = "synthetic"
)

// SeriesTable holds one aligned close-price column per symbol over a shared
// daily axis. Every column has len(Dates) entries.
type SeriesTable struct {
	Dates   []time.Time
	Symbols []string // sorted
	Columns map[string][]float64
	Sources map[string]DataSource
}

func (t *SeriesTable) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

func (t *SeriesTable) Column(symbol string) []float64 {
	return t.Columns[symbol]
}
