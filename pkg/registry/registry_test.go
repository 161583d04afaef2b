package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry(slog.Default())
	r.RegisterDefaultNodes()

	return r
}

func TestRegistry_DefaultNodes(t *testing.T) {
	r := newTestRegistry(t)

	for _, nodeType := range []string{NodeTypeStart, NodeTypeEnd, NodeTypeHTTP, NodeTypeAI} {
		assert.True(t, r.Registered(nodeType), nodeType)
	}

	assert.False(t, r.Registered("webhook"))
}

func TestRegistry_RegisterNode(t *testing.T) {
	r := NewRegistry(slog.Default())

	err := r.RegisterNode(NodeType{})
	require.Error(t, err)

	err = r.RegisterNode(NodeType{Type: "custom", Name: "Custom"})
	require.NoError(t, err)

	nt, ok := r.Lookup("custom")
	require.True(t, ok)
	assert.Equal(t, "Custom", nt.Name)

	// Re-registering replaces the descriptor.
	err = r.RegisterNode(NodeType{Type: "custom", Name: "Custom v2"})
	require.NoError(t, err)

	nt, _ = r.Lookup("custom")
	assert.Equal(t, "Custom v2", nt.Name)
}

func TestRegistry_DefaultConfig(t *testing.T) {
	r := newTestRegistry(t)

	config, err := r.DefaultConfig(NodeTypeHTTP)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"method": "GET", "url": "", "headers": ""}, config)

	// Each call hands out an independent copy.
	config["method"] = "POST"

	again, err := r.DefaultConfig(NodeTypeHTTP)
	require.NoError(t, err)
	assert.Equal(t, "GET", again["method"])

	_, err = r.DefaultConfig("nope")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestRegistry_AIDefaultConfig(t *testing.T) {
	r := newTestRegistry(t)

	config, err := r.DefaultConfig(NodeTypeAI)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", config["model"])
	assert.Equal(t, "", config["apiKey"])
	assert.Equal(t, "", config["prompt"])
}

func TestRegistry_Capabilities(t *testing.T) {
	r := newTestRegistry(t)

	caps, err := r.Capabilities(NodeTypeStart)
	require.NoError(t, err)
	assert.False(t, caps.AcceptsIncoming)
	assert.True(t, caps.AcceptsOutgoing)

	caps, err = r.Capabilities(NodeTypeEnd)
	require.NoError(t, err)
	assert.True(t, caps.AcceptsIncoming)
	assert.False(t, caps.AcceptsOutgoing)

	caps, err = r.Capabilities(NodeTypeHTTP)
	require.NoError(t, err)
	assert.True(t, caps.AcceptsIncoming)
	assert.True(t, caps.AcceptsOutgoing)

	_, err = r.Capabilities("nope")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestRegistry_IsPassThrough(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, r.IsPassThrough(NodeTypeStart))
	assert.True(t, r.IsPassThrough(NodeTypeEnd))
	assert.False(t, r.IsPassThrough(NodeTypeHTTP))
	assert.False(t, r.IsPassThrough("nope"))
}

func TestRegistry_NodeTypes_Sorted(t *testing.T) {
	r := newTestRegistry(t)

	types := r.NodeTypes()
	require.Len(t, types, 4)

	assert.Equal(t, NodeTypeAI, types[0].Type)
	assert.Equal(t, NodeTypeEnd, types[1].Type)
	assert.Equal(t, NodeTypeHTTP, types[2].Type)
	assert.Equal(t, NodeTypeStart, types[3].Type)
}

func TestRegistry_ValidateConfig(t *testing.T) {
	r := newTestRegistry(t)

	err := r.ValidateConfig(NodeTypeHTTP, map[string]any{
		"method": "POST",
		"url":    "https://example.com",
	})
	require.NoError(t, err)

	// Method outside the enum.
	err = r.ValidateConfig(NodeTypeHTTP, map[string]any{
		"method": "FETCH",
		"url":    "https://example.com",
	})
	require.Error(t, err)

	// Missing required url.
	err = r.ValidateConfig(NodeTypeHTTP, map[string]any{"method": "GET"})
	require.Error(t, err)

	// Types without a schema accept anything.
	err = r.ValidateConfig(NodeTypeStart, map[string]any{"whatever": true})
	require.NoError(t, err)

	err = r.ValidateConfig("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}
