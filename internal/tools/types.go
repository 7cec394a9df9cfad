package tools

import (
	"context"
)

// CallToolResult is the outcome of a tool execution before it is converted
// to the MCP wire format. String content is sent as text; anything else is
// marshaled to JSON.
type CallToolResult struct {
	Content []interface{} `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ArgMetadata describes one tool argument.
type ArgMetadata struct {
	Name        string
	Type        string
	Required    bool
	Description string
	Default     interface{}
	// Schema overrides Type with a full JSON schema fragment.
	Schema map[string]interface{}
}

// ToolMetadata describes a tool that can be exposed.
type ToolMetadata struct {
	Name        string
	Description string
	Args        []ArgMetadata
	Annotations Annotations
}

// ToolProvider is implemented by each tool group.
type ToolProvider interface {
	// GetTools returns metadata for every tool this provider offers.
	GetTools() []ToolMetadata
	// ExecuteTool runs the named tool. A returned error means the tool
	// could not run at all; failures reported to the caller are results
	// with IsError set.
	ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error)
}

// Annotations describe how a tool behaves. They become MCP tool hints and
// decide whether a tool survives read-only mode.
type Annotations struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	// LocalOnly tools touch nothing in the tenant, only the process's own
	// sign-in state. Read-only mode keeps them.
	LocalOnly bool
}

// ReadOnly returns annotations for tools that only read tenant data.
func ReadOnly() Annotations {
	return Annotations{ReadOnly: true, Idempotent: true}
}

// Idempotent returns annotations for updates that converge when repeated.
func Idempotent() Annotations {
	return Annotations{Idempotent: true}
}

// Create returns annotations for tools whose effects accumulate: send,
// create, respond.
func Create() Annotations {
	return Annotations{}
}

// Destructive returns annotations for tools that remove data.
func Destructive() Annotations {
	return Annotations{Destructive: true, Idempotent: true}
}

// Session returns annotations for tools that manage local sign-in state.
func Session() Annotations {
	return Annotations{LocalOnly: true}
}
