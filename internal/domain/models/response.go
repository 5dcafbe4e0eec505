package models

import "time"

type NodeJSON struct {
	ID string `json:"id"`
}

type EdgeJSON struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Correlation float64  `json:"correlation"`
	Value       float64  `json:"value"`
	Method      Method   `json:"method"`
	PValue      *float64 `json:"p_value,omitempty"`
	AvgPValue   *float64 `json:"avg_p_value,omitempty"`
	Importance  *float64 `json:"importance,omitempty"`
}

type SummaryJSON struct {
	TotalEdges      int `json:"total_edges"`
	CausalityEdges  int `json:"causality_edges"`
	ClassifierEdges int `json:"classifier_edges"`
}

// AnalysisResponse is the success envelope shared by the HTTP API, the
// result topic and the analyze command.
type AnalysisResponse struct {
	Success     bool                  `json:"success"`
	Nodes       []NodeJSON            `json:"nodes"`
	Edges       []EdgeJSON            `json:"edges"`
	Cached      bool                  `json:"cached"`
	Timestamp   float64               `json:"timestamp"`
	Summary     SummaryJSON           `json:"analysis_summary"`
	DataSources map[string]DataSource `json:"data_sources,omitempty"`
}

// UnixSeconds renders t as fractional seconds since the epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Response converts r into its wire envelope.
func (r *AnalysisResult) Response() AnalysisResponse {
	out := AnalysisResponse{
		Success:   true,
		Nodes:     make([]NodeJSON, len(r.Graph.Nodes)),
		Edges:     make([]EdgeJSON, len(r.Graph.Edges)),
		Cached:    r.Cached,
		Timestamp: UnixSeconds(r.Timestamp),
		Summary: SummaryJSON{
			TotalEdges:      r.Summary.TotalEdges,
			CausalityEdges:  r.Summary.CausalityEdges,
			ClassifierEdges: r.Summary.ClassifierEdges,
		},
		DataSources: r.Sources,
	}
	for i, n := range r.Graph.Nodes {
		out.Nodes[i] = NodeJSON{ID: n.ID}
	}
	for i, e := range r.Graph.Edges {
		out.Edges[i] = EdgeJSON{
			Source:      e.Source,
			Target:      e.Target,
			Correlation: e.Correlation,
			Value:       e.Value,
			Method:      e.Method,
			PValue:      e.PValue,
			AvgPValue:   e.AvgPValue,
			Importance:  e.Importance,
		}
	}
	return out
}
