// Package graph implements the interactive workflow graph: a directed graph
// of typed nodes with mutation operations, and the bidirectional mapping to
// the backend's persisted definition format.
//
// A Model is exclusively owned by one editing session. Operations are
// synchronous and total-ordered by call sequence; the referential-integrity
// invariant (every edge endpoint exists, node ids unique) holds before and
// after every operation.
package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/flowdash/flowdash/pkg/registry"
)

// Position is a pixel coordinate on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one node of the interactive graph.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Config   map[string]any `json:"config"`
	Position Position       `json:"position"`
}

// Edge is a directed connection between two nodes of the same graph.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a renderable snapshot of a model: nodes with pixel coordinates,
// pass-through markers included.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Model is the live graph of one editing session.
type Model struct {
	registry  *registry.Registry
	logger    *slog.Logger
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	counters  map[string]int
}

// NewModel creates an empty model backed by the given node type registry.
func NewModel(reg *registry.Registry, logger *slog.Logger) *Model {
	return &Model{
		registry: reg,
		logger:   logger,
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		counters: make(map[string]int),
	}
}

// Load seeds the model from a previously serialized graph, replacing any
// current content. Id counters are advanced past every loaded node id so a
// resumed session cannot re-issue an id already in the graph. Edges with
// dangling endpoints are dropped.
func (m *Model) Load(g Graph) {
	m.Clear()

	for _, n := range g.Nodes {
		if n.ID == "" {
			continue
		}

		node := n
		if node.Config == nil {
			node.Config = make(map[string]any)
		}

		m.nodes[node.ID] = &node
		m.nodeOrder = append(m.nodeOrder, node.ID)
		m.bumpCounter(node.ID)
	}

	for _, e := range g.Edges {
		if _, ok := m.nodes[e.Source]; !ok {
			m.logger.Warn("Dropping edge with dangling source", "edge", e.ID, "source", e.Source)

			continue
		}

		if _, ok := m.nodes[e.Target]; !ok {
			m.logger.Warn("Dropping edge with dangling target", "edge", e.ID, "target", e.Target)

			continue
		}

		edge := e
		m.edges[edge.ID] = &edge
		m.edgeOrder = append(m.edgeOrder, edge.ID)
	}
}

// AddNode allocates a fresh node of the given type at the given position and
// returns its id. Config is seeded from the registry default.
func (m *Model) AddNode(nodeType string, pos Position) (string, error) {
	if !m.registry.Registered(nodeType) {
		return "", fmt.Errorf("%w: %s", ErrInvalidType, nodeType)
	}

	config, err := m.registry.DefaultConfig(nodeType)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidType, nodeType)
	}

	label := nodeType
	if nt, ok := m.registry.Lookup(nodeType); ok && nt.Name != "" {
		label = nt.Name
	}

	id := m.nextNodeID(nodeType)
	m.nodes[id] = &Node{
		ID:       id,
		Type:     nodeType,
		Label:    label,
		Config:   config,
		Position: pos,
	}
	m.nodeOrder = append(m.nodeOrder, id)

	return id, nil
}

// UpdateNodeConfig shallow-merges patch into the node's config. A "label"
// string entry updates the node label instead of the config.
func (m *Model) UpdateNodeConfig(nodeID string, patch map[string]any) error {
	node, ok := m.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	for key, value := range patch {
		if key == "label" {
			if label, ok := value.(string); ok {
				node.Label = label
			}

			continue
		}

		node.Config[key] = value
	}

	return nil
}

// RemoveNode removes the node and every edge touching it, so no dangling
// edge survives the operation.
func (m *Model) RemoveNode(nodeID string) error {
	if _, ok := m.nodes[nodeID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	delete(m.nodes, nodeID)
	m.nodeOrder = deleteID(m.nodeOrder, nodeID)

	for id, edge := range m.edges {
		if edge.Source == nodeID || edge.Target == nodeID {
			delete(m.edges, id)
			m.edgeOrder = deleteID(m.edgeOrder, id)
		}
	}

	return nil
}

// Connect creates an edge from source to target and returns its id. Both
// endpoints must exist, the source type must accept outgoing edges and the
// target type incoming ones. Self-loops and duplicate parallel edges are
// rejected.
func (m *Model) Connect(sourceID, targetID string) (string, error) {
	source, ok := m.nodes[sourceID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, sourceID)
	}

	target, ok := m.nodes[targetID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, targetID)
	}

	if sourceID == targetID {
		return "", newConnectionError(sourceID, targetID, "self-loop", ErrInvalidConnection)
	}

	sourceCaps, err := m.registry.Capabilities(source.Type)
	if err != nil || !sourceCaps.AcceptsOutgoing {
		return "", newConnectionError(sourceID, targetID, "source does not accept outgoing edges", ErrInvalidConnection)
	}

	targetCaps, err := m.registry.Capabilities(target.Type)
	if err != nil || !targetCaps.AcceptsIncoming {
		return "", newConnectionError(sourceID, targetID, "target does not accept incoming edges", ErrInvalidConnection)
	}

	for _, edge := range m.edges {
		if edge.Source == sourceID && edge.Target == targetID {
			return "", newConnectionError(sourceID, targetID, "duplicate edge", ErrInvalidConnection)
		}
	}

	id := "edge_" + uuid.NewString()
	m.edges[id] = &Edge{ID: id, Source: sourceID, Target: targetID}
	m.edgeOrder = append(m.edgeOrder, id)

	return id, nil
}

// Disconnect removes an edge. Removing an absent edge is a no-op.
func (m *Model) Disconnect(edgeID string) {
	if _, ok := m.edges[edgeID]; !ok {
		return
	}

	delete(m.edges, edgeID)
	m.edgeOrder = deleteID(m.edgeOrder, edgeID)
}

// Clear empties nodes and edges. Confirmation is the caller's concern.
func (m *Model) Clear() {
	m.nodes = make(map[string]*Node)
	m.nodeOrder = nil
	m.edges = make(map[string]*Edge)
	m.edgeOrder = nil
	m.counters = make(map[string]int)
}

// Node returns a copy of one node.
func (m *Model) Node(nodeID string) (Node, bool) {
	node, ok := m.nodes[nodeID]
	if !ok {
		return Node{}, false
	}

	return copyNode(node), true
}

// Graph returns a deep-copied snapshot in insertion order.
func (m *Model) Graph() Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(m.nodeOrder)),
		Edges: make([]Edge, 0, len(m.edgeOrder)),
	}

	for _, id := range m.nodeOrder {
		g.Nodes = append(g.Nodes, copyNode(m.nodes[id]))
	}

	for _, id := range m.edgeOrder {
		g.Edges = append(g.Edges, *m.edges[id])
	}

	return g
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of edges.
func (m *Model) EdgeCount() int {
	return len(m.edges)
}

// nextNodeID issues "{type}_{n}" with a per-type counter scoped to this
// model, so concurrently open editors cannot collide on ids.
func (m *Model) nextNodeID(nodeType string) string {
	for {
		m.counters[nodeType]++

		id := nodeType + "_" + strconv.Itoa(m.counters[nodeType])
		if _, taken := m.nodes[id]; !taken {
			return id
		}
	}
}

// bumpCounter advances the per-type counter past a loaded "{type}_{n}" id.
func (m *Model) bumpCounter(nodeID string) {
	idx := strings.LastIndex(nodeID, "_")
	if idx <= 0 {
		return
	}

	n, err := strconv.Atoi(nodeID[idx+1:])
	if err != nil {
		return
	}

	nodeType := nodeID[:idx]
	if n > m.counters[nodeType] {
		m.counters[nodeType] = n
	}
}

func copyNode(n *Node) Node {
	node := *n
	node.Config = make(map[string]any, len(n.Config))
	maps.Copy(node.Config, n.Config)

	return node
}

func deleteID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}

	return ids
}
