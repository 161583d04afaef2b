package graph

import (
	"math"
	"maps"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/registry"
)

// ToDefinition maps an interactive graph to the backend's persisted format:
// pass-through nodes are discarded, edges touching a discarded node are
// dropped with them, coordinates are integer-rounded and UI-only fields
// removed.
func ToDefinition(g Graph, reg *registry.Registry) models.PersistedGraph {
	persisted := models.PersistedGraph{
		Nodes: make([]models.PersistedNode, 0, len(g.Nodes)),
		Edges: make([]models.PersistedEdge, 0, len(g.Edges)),
	}

	retained := make(map[string]struct{}, len(g.Nodes))

	for _, node := range g.Nodes {
		if reg.IsPassThrough(node.Type) {
			continue
		}

		retained[node.ID] = struct{}{}

		config := make(map[string]any, len(node.Config))
		maps.Copy(config, node.Config)

		persisted.Nodes = append(persisted.Nodes, models.PersistedNode{
			ID:     node.ID,
			Type:   node.Type,
			Name:   node.Label,
			Config: config,
			X:      int(math.Round(node.Position.X)),
			Y:      int(math.Round(node.Position.Y)),
		})
	}

	for _, edge := range g.Edges {
		if _, ok := retained[edge.Source]; !ok {
			continue
		}

		if _, ok := retained[edge.Target]; !ok {
			continue
		}

		persisted.Edges = append(persisted.Edges, models.PersistedEdge{
			ID:     edge.ID,
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	return persisted
}

// FromDefinition maps a persisted graph back to the interactive format.
// The persisted form never contained pass-through nodes, so a reloaded graph
// has none either: the round trip is asymmetric by contract.
func FromDefinition(pg models.PersistedGraph) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(pg.Nodes)),
		Edges: make([]Edge, 0, len(pg.Edges)),
	}

	for _, node := range pg.Nodes {
		config := make(map[string]any, len(node.Config))
		maps.Copy(config, node.Config)

		g.Nodes = append(g.Nodes, Node{
			ID:     node.ID,
			Type:   node.Type,
			Label:  node.Name,
			Config: config,
			Position: Position{
				X: float64(node.X),
				Y: float64(node.Y),
			},
		})
	}

	for _, edge := range pg.Edges {
		g.Edges = append(g.Edges, Edge{
			ID:     edge.ID,
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	return g
}
