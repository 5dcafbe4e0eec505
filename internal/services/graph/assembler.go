package graph

import (
	"sort"

	"FinInfluence/internal/domain/models"
)

// Assembler merges scorer outputs into one bounded graph.
type Assembler struct {
	maxEdges int
}

func NewAssembler(maxEdges int) *Assembler {
	if maxEdges < 1 {
		maxEdges = 20
	}
	return &Assembler{maxEdges: maxEdges}
}

// Assemble concatenates the edge groups in order, ranks by value (ties keep
// input order), keeps the first edge per ordered pair and caps the result.
// Nodes are the requested symbols whether or not any edge touches them.
func (a *Assembler) Assemble(symbols []string, groups ...[]models.Edge) models.Graph {
	var all []models.Edge
	for _, g := range groups {
		all = append(all, g...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Value > all[j].Value })

	type pair struct{ source, target string }
	seen := make(map[pair]struct{}, len(all))
	edges := make([]models.Edge, 0, min(len(all), a.maxEdges))
	for _, e := range all {
		if len(edges) == a.maxEdges {
			break
		}
		if e.Source == e.Target {
			continue
		}
		k := pair{e.Source, e.Target}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		edges = append(edges, e)
	}

	ids := append([]string(nil), symbols...)
	sort.Strings(ids)
	nodes := make([]models.Node, len(ids))
	for i, id := range ids {
		nodes[i] = models.Node{ID: id}
	}

	return models.Graph{Nodes: nodes, Edges: edges}
}
