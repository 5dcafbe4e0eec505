package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/internal/domain/models"
)

func edge(src, dst string, m models.Method, v float64) models.Edge {
	return models.Edge{Source: src, Target: dst, Method: m, Value: v}
}

func TestAssembleDedupKeepsHighestValue(t *testing.T) {
	a := NewAssembler(20)
	g := a.Assemble([]string{"B", "A"},
		[]models.Edge{edge("A", "B", models.MethodCausality, 0.95)},
		[]models.Edge{
			edge("A", "B", models.MethodClassifier, 0.99),
			edge("B", "A", models.MethodClassifier, 0.5),
		},
	)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, models.MethodClassifier, g.Edges[0].Method)
	assert.Equal(t, 0.99, g.Edges[0].Value)
	assert.Equal(t, "B", g.Edges[1].Source)
	assert.Equal(t, []models.Node{{ID: "A"}, {ID: "B"}}, g.Nodes)
}

func TestAssembleTiesFavorEarlierGroup(t *testing.T) {
	g := NewAssembler(20).Assemble([]string{"A", "B"},
		[]models.Edge{edge("A", "B", models.MethodCausality, 0.9)},
		[]models.Edge{edge("A", "B", models.MethodClassifier, 0.9)},
	)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, models.MethodCausality, g.Edges[0].Method)
}

func TestAssembleCapsEdges(t *testing.T) {
	var in []models.Edge
	syms := []string{}
	for i := 0; i < 8; i++ {
		syms = append(syms, fmt.Sprintf("S%d", i))
	}
	for i, s := range syms {
		for j, d := range syms {
			if i != j {
				in = append(in, edge(s, d, models.MethodCausality, float64(i*8+j)/100))
			}
		}
	}

	g := NewAssembler(20).Assemble(syms, in)
	require.Len(t, g.Edges, 20)
	for i := 1; i < len(g.Edges); i++ {
		assert.GreaterOrEqual(t, g.Edges[i-1].Value, g.Edges[i].Value)
	}
	assert.Len(t, g.Nodes, 8)
}

func TestAssembleNoEdgesStillListsNodes(t *testing.T) {
	g := NewAssembler(0).Assemble([]string{"MSFT", "AAPL", "GOOG"})
	assert.Empty(t, g.Edges)
	assert.Equal(t, []models.Node{{ID: "AAPL"}, {ID: "GOOG"}, {ID: "MSFT"}}, g.Nodes)
}

func TestAssembleDropsSelfLoops(t *testing.T) {
	g := NewAssembler(5).Assemble([]string{"A"}, []models.Edge{edge("A", "A", models.MethodCausality, 1)})
	assert.Empty(t, g.Edges)
}
