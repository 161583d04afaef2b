// Package models defines the core domain models shared by the dashboard client.
package models

import "time"

// WorkflowDefinition is the persisted, backend-facing description of a
// workflow. The embedded graph only ever contains business nodes; pass-through
// markers never leave the editor.
type WorkflowDefinition struct {
	ID          int64          `json:"id,omitempty"`
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description"`
	Graph       PersistedGraph `json:"graph"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// PersistedGraph is the backend wire format of a workflow graph.
type PersistedGraph struct {
	Nodes []PersistedNode `json:"nodes"`
	Edges []PersistedEdge `json:"edges"`
}

// PersistedNode is a business node as stored by the backend. Coordinates are
// integer-rounded; UI-only fields are gone.
type PersistedNode struct {
	ID     string         `json:"id"     validate:"required"`
	Type   string         `json:"type"   validate:"required"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
}

// PersistedEdge connects two persisted nodes by id.
type PersistedEdge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}
