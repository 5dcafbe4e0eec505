package models

import "time"

// Method names the scorer that produced an edge.
type Method string

const (
	MethodCausality  Method = "causality"
	MethodClassifier Method = "classifier"
)

// Edge is a directed influence claim: Source helps predict Target.
// Value is in [0,1]. The pointer fields are set only by the scorer that
// produces them.
type Edge struct {
	Source      string
	Target      string
	Method      Method
	Value       float64
	Correlation float64
	PValue      *float64
	AvgPValue   *float64
	Importance  *float64
}

type Node struct {
	ID string
}

type Graph struct {
	Nodes []Node
	Edges []Edge
}

type AnalysisSummary struct {
	TotalEdges      int
	CausalityEdges  int
	ClassifierEdges int
}

func Summarize(edges []Edge) AnalysisSummary {
	s := AnalysisSummary{TotalEdges: len(edges)}
	for _, e := range edges {
		switch e.Method {
		case MethodCausality:
			s.CausalityEdges++
		case MethodClassifier:
			s.ClassifierEdges++
		}
	}
	return s
}

// AnalysisResult is what the analyzer hands to transports. Timestamp is the
// moment the graph was computed, which differs from now on cache hits.
type AnalysisResult struct {
	Key       string
	Graph     Graph
	Summary   AnalysisSummary
	Sources   map[string]DataSource
	Cached    bool
	Timestamp time.Time
}
