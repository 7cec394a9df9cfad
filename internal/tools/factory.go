package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"helix/pkg/logging"
)

// Filter decides which tools are exposed.
type Filter struct {
	// ReadOnly drops every tool that can change tenant data.
	ReadOnly bool
	// Enabled, when set, keeps only tools whose name matches.
	Enabled *regexp.Regexp
}

// NewFilter compiles the enabled-tools pattern. An empty pattern enables all tools.
func NewFilter(readOnly bool, pattern string) (Filter, error) {
	f := Filter{ReadOnly: readOnly}
	if pattern == "" {
		return f, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Filter{}, fmt.Errorf("invalid enabled tools pattern %q: %w", pattern, err)
	}
	f.Enabled = re
	return f, nil
}

// Allows reports whether tool passes the filter.
func (f Filter) Allows(tool ToolMetadata) bool {
	if f.ReadOnly && !tool.Annotations.ReadOnly && !tool.Annotations.LocalOnly {
		return false
	}
	if f.Enabled != nil && !f.Enabled.MatchString(tool.Name) {
		return false
	}
	return true
}

// BuildServerTools converts the tools of every provider into MCP server
// tools, dropping those the filter rejects. Tools are returned sorted by name.
func BuildServerTools(filter Filter, providers ...ToolProvider) []mcpserver.ServerTool {
	var tools []mcpserver.ServerTool
	seen := make(map[string]bool)

	for _, provider := range providers {
		if provider == nil {
			continue
		}
		for _, meta := range provider.GetTools() {
			if seen[meta.Name] {
				logging.Warn("ToolFactory", "Duplicate tool %s ignored", meta.Name)
				continue
			}
			seen[meta.Name] = true

			if !filter.Allows(meta) {
				logging.Debug("ToolFactory", "Tool %s filtered out", meta.Name)
				continue
			}

			tools = append(tools, mcpserver.ServerTool{
				Tool: mcp.Tool{
					Name:        meta.Name,
					Description: meta.Description,
					InputSchema: convertToMCPSchema(meta.Args),
					Annotations: convertAnnotations(meta.Annotations),
				},
				Handler: createToolHandler(provider, meta.Name),
			})
		}
	}

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Tool.Name < tools[j].Tool.Name
	})
	return tools
}

// createToolHandler wraps a provider's ExecuteTool in an MCP handler.
func createToolHandler(provider ToolProvider, toolName string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := make(map[string]interface{})
		if req.Params.Arguments != nil {
			if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
				args = argsMap
			}
		}

		result, err := provider.ExecuteTool(ctx, toolName, args)
		if err != nil {
			logging.Error("ToolHandler", err, "Tool execution failed for %s", toolName)
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}
		return convertToMCPResult(result), nil
	}
}

func convertAnnotations(a Annotations) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(a.ReadOnly),
		DestructiveHint: mcp.ToBoolPtr(a.Destructive),
		IdempotentHint:  mcp.ToBoolPtr(a.Idempotent),
		OpenWorldHint:   mcp.ToBoolPtr(!a.LocalOnly),
	}
}

// convertToMCPSchema converts arg metadata to an MCP input schema.
func convertToMCPSchema(params []ArgMetadata) mcp.ToolInputSchema {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range params {
		var propSchema map[string]interface{}

		if len(param.Schema) > 0 {
			propSchema = make(map[string]interface{}, len(param.Schema)+1)
			for key, value := range param.Schema {
				propSchema[key] = value
			}
			if param.Description != "" {
				propSchema["description"] = param.Description
			}
		} else {
			propSchema = map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
		}

		if param.Default != nil {
			propSchema["default"] = param.Default
		}

		properties[param.Name] = propSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// convertToMCPResult converts a tool result to MCP format.
func convertToMCPResult(result *CallToolResult) *mcp.CallToolResult {
	if result == nil {
		return mcp.NewToolResultText("")
	}

	mcpContent := make([]mcp.Content, len(result.Content))
	for i, content := range result.Content {
		if text, ok := content.(string); ok {
			mcpContent[i] = mcp.NewTextContent(text)
		} else {
			jsonBytes, _ := json.Marshal(content)
			mcpContent[i] = mcp.NewTextContent(string(jsonBytes))
		}
	}

	return &mcp.CallToolResult{
		Content: mcpContent,
		IsError: result.IsError,
	}
}
