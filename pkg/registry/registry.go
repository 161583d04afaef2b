// Package registry holds the node type table: default configuration, port
// capabilities and config schema for every node kind the editor knows about.
// Consumers dispatch through lookups, never through per-type branches, so a
// new node kind is a pure data change.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownNodeType is returned when a node type is not registered.
var ErrUnknownNodeType = errors.New("node type not registered")

// NodeType describes one node kind.
type NodeType struct {
	Type            string
	Name            string
	Description     string
	PassThrough     bool // display-only topology marker, excluded from persisted definitions
	AcceptsIncoming bool
	AcceptsOutgoing bool
	DefaultConfig   map[string]any
	ConfigSchema    map[string]any // JSON schema for Config; nil means unvalidated
}

// Capabilities describes which edge directions a node type accepts.
type Capabilities struct {
	AcceptsIncoming bool
	AcceptsOutgoing bool
}

type Registry struct {
	logger    *slog.Logger
	nodeTypes map[string]NodeType
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		nodeTypes: make(map[string]NodeType),
	}
}

// RegisterNode adds or replaces a node type.
func (r *Registry) RegisterNode(nt NodeType) error {
	if nt.Type == "" {
		return errors.New("node type identifier is required")
	}

	if _, exists := r.nodeTypes[nt.Type]; exists {
		r.logger.Warn("Replacing registered node type", "type", nt.Type)
	}

	r.nodeTypes[nt.Type] = nt

	return nil
}

// Lookup returns the descriptor for a node type.
func (r *Registry) Lookup(nodeType string) (NodeType, bool) {
	nt, ok := r.nodeTypes[nodeType]

	return nt, ok
}

// Registered reports whether a node type is known.
func (r *Registry) Registered(nodeType string) bool {
	_, ok := r.nodeTypes[nodeType]

	return ok
}

// DefaultConfig returns a fresh copy of the type's default configuration.
func (r *Registry) DefaultConfig(nodeType string) (map[string]any, error) {
	nt, ok := r.nodeTypes[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	config := make(map[string]any, len(nt.DefaultConfig))
	maps.Copy(config, nt.DefaultConfig)

	return config, nil
}

// Capabilities returns which edge directions the type accepts.
func (r *Registry) Capabilities(nodeType string) (Capabilities, error) {
	nt, ok := r.nodeTypes[nodeType]
	if !ok {
		return Capabilities{}, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	return Capabilities{
		AcceptsIncoming: nt.AcceptsIncoming,
		AcceptsOutgoing: nt.AcceptsOutgoing,
	}, nil
}

// IsPassThrough reports whether the type is a display-only topology marker.
// Unregistered types are not pass-through.
func (r *Registry) IsPassThrough(nodeType string) bool {
	nt, ok := r.nodeTypes[nodeType]

	return ok && nt.PassThrough
}

// NodeTypes returns all registered descriptors sorted by type identifier.
func (r *Registry) NodeTypes() []NodeType {
	types := slices.Collect(maps.Values(r.nodeTypes))
	slices.SortFunc(types, func(a, b NodeType) int {
		return strings.Compare(a.Type, b.Type)
	})

	return types
}

// ValidateConfig checks config against the type's JSON schema. Types without
// a schema accept any config.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	nt, ok := r.nodeTypes[nodeType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	if nt.ConfigSchema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(nt.ConfigSchema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid config for node type %s: %s", nodeType, strings.Join(descriptions, "; "))
	}

	return nil
}
