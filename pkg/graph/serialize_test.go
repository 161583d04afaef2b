package graph

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdash/flowdash/pkg/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	return reg
}

func TestToDefinition_FiltersPassThroughNodes(t *testing.T) {
	reg := newTestRegistry(t)

	g := Graph{
		Nodes: []Node{
			{ID: "start_1", Type: registry.NodeTypeStart, Label: "Start"},
			{ID: "http_1", Type: registry.NodeTypeHTTP, Label: "Fetch", Config: map[string]any{"method": "GET", "url": "https://example.com"}},
			{ID: "ai_1", Type: registry.NodeTypeAI, Label: "Summarize", Config: map[string]any{"model": "gpt-3.5-turbo"}},
			{ID: "end_1", Type: registry.NodeTypeEnd, Label: "End"},
		},
		Edges: []Edge{
			{ID: "e1", Source: "start_1", Target: "http_1"},
			{ID: "e2", Source: "http_1", Target: "ai_1"},
			{ID: "e3", Source: "ai_1", Target: "end_1"},
		},
	}

	persisted := ToDefinition(g, reg)

	// The start/end markers vanish and take their edges with them.
	require.Len(t, persisted.Nodes, 2)
	assert.Equal(t, "http_1", persisted.Nodes[0].ID)
	assert.Equal(t, "ai_1", persisted.Nodes[1].ID)

	require.Len(t, persisted.Edges, 1)
	assert.Equal(t, "e2", persisted.Edges[0].ID)
}

func TestToDefinition_RoundsCoordinates(t *testing.T) {
	reg := newTestRegistry(t)

	g := Graph{
		Nodes: []Node{
			{ID: "http_1", Type: registry.NodeTypeHTTP, Position: Position{X: 100.6, Y: 49.4}},
		},
	}

	persisted := ToDefinition(g, reg)

	require.Len(t, persisted.Nodes, 1)
	assert.Equal(t, 101, persisted.Nodes[0].X)
	assert.Equal(t, 49, persisted.Nodes[0].Y)
}

func TestToDefinition_MapsLabelToName(t *testing.T) {
	reg := newTestRegistry(t)

	g := Graph{
		Nodes: []Node{
			{ID: "http_1", Type: registry.NodeTypeHTTP, Label: "Fetch users"},
		},
	}

	persisted := ToDefinition(g, reg)

	require.Len(t, persisted.Nodes, 1)
	assert.Equal(t, "Fetch users", persisted.Nodes[0].Name)
}

func TestFromDefinition_DoesNotSynthesizePassThroughNodes(t *testing.T) {
	reg := newTestRegistry(t)

	g := Graph{
		Nodes: []Node{
			{ID: "start_1", Type: registry.NodeTypeStart},
			{ID: "http_1", Type: registry.NodeTypeHTTP, Label: "Fetch"},
		},
		Edges: []Edge{
			{ID: "e1", Source: "start_1", Target: "http_1"},
		},
	}

	reloaded := FromDefinition(ToDefinition(g, reg))

	require.Len(t, reloaded.Nodes, 1)
	assert.Equal(t, "http_1", reloaded.Nodes[0].ID)
	assert.Empty(t, reloaded.Edges)
}

// Serializing a reloaded graph yields exactly what was persisted: the round
// trip is lossy once, then stable.
func TestSerialization_StableAfterFirstRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	g := Graph{
		Nodes: []Node{
			{ID: "start_1", Type: registry.NodeTypeStart},
			{ID: "http_1", Type: registry.NodeTypeHTTP, Label: "Fetch", Config: map[string]any{"method": "GET", "url": "x"}, Position: Position{X: 10.7, Y: 20.2}},
			{ID: "ai_1", Type: registry.NodeTypeAI, Label: "Summarize", Config: map[string]any{"model": "gpt-3.5-turbo"}, Position: Position{X: 200, Y: 20}},
		},
		Edges: []Edge{
			{ID: "e1", Source: "start_1", Target: "http_1"},
			{ID: "e2", Source: "http_1", Target: "ai_1"},
		},
	}

	first := ToDefinition(g, reg)
	second := ToDefinition(FromDefinition(first), reg)

	assert.Equal(t, first, second)
}

func TestSerialization_LoadIntoModel(t *testing.T) {
	reg := newTestRegistry(t)
	m := NewModel(reg, slog.Default())

	httpID, err := m.AddNode(registry.NodeTypeHTTP, Position{X: 1, Y: 2})
	require.NoError(t, err)

	aiID, err := m.AddNode(registry.NodeTypeAI, Position{X: 3, Y: 4})
	require.NoError(t, err)

	_, err = m.Connect(httpID, aiID)
	require.NoError(t, err)

	persisted := ToDefinition(m.Graph(), reg)

	resumed := NewModel(reg, slog.Default())
	resumed.Load(FromDefinition(persisted))

	assert.Equal(t, 2, resumed.NodeCount())
	assert.Equal(t, 1, resumed.EdgeCount())

	// The resumed session issues ids past the loaded ones.
	next, err := resumed.AddNode(registry.NodeTypeHTTP, Position{})
	require.NoError(t, err)
	assert.Equal(t, "http_2", next)
}
