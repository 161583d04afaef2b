package registry

// Built-in node types.
const (
	NodeTypeStart = "start"
	NodeTypeEnd   = "end"
	NodeTypeHTTP  = "http"
	NodeTypeAI    = "ai"
)

// RegisterDefaultNodes registers the built-in node types: the start/end
// pass-through markers and the http/ai business nodes.
func (r *Registry) RegisterDefaultNodes() {
	_ = r.RegisterNode(NodeType{
		Type:            NodeTypeStart,
		Name:            "Start",
		Description:     "Marks the flow entry (display only)",
		PassThrough:     true,
		AcceptsIncoming: false,
		AcceptsOutgoing: true,
		DefaultConfig:   map[string]any{},
	})

	_ = r.RegisterNode(NodeType{
		Type:            NodeTypeEnd,
		Name:            "End",
		Description:     "Marks the flow exit (display only)",
		PassThrough:     true,
		AcceptsIncoming: true,
		AcceptsOutgoing: false,
		DefaultConfig:   map[string]any{},
	})

	_ = r.RegisterNode(NodeType{
		Type:            NodeTypeHTTP,
		Name:            "HTTP Request",
		Description:     "Sends an HTTP request",
		AcceptsIncoming: true,
		AcceptsOutgoing: true,
		DefaultConfig: map[string]any{
			"method":  "GET",
			"url":     "",
			"headers": "",
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"method": map[string]any{
					"type": "string",
					"enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
				},
				"url":     map[string]any{"type": "string"},
				"headers": map[string]any{"type": "string"},
			},
			"required": []any{"method", "url"},
		},
	})

	_ = r.RegisterNode(NodeType{
		Type:            NodeTypeAI,
		Name:            "AI Completion",
		Description:     "Calls an AI model",
		AcceptsIncoming: true,
		AcceptsOutgoing: true,
		DefaultConfig: map[string]any{
			"apiKey": "",
			"model":  "gpt-3.5-turbo",
			"prompt": "",
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"apiKey": map[string]any{"type": "string"},
				"model":  map[string]any{"type": "string"},
				"prompt": map[string]any{"type": "string"},
			},
			"required": []any{"model"},
		},
	})
}
