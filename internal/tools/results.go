package tools

import (
	"github.com/microsoft/kiota-abstractions-go/serialization"

	"helix/internal/graph"
)

func textResult(text string) *CallToolResult {
	return &CallToolResult{Content: []interface{}{text}}
}

func errorResult(text string) *CallToolResult {
	return &CallToolResult{Content: []interface{}{text}, IsError: true}
}

// graphResult renders a Graph model, or success when v is nil.
func graphResult(v serialization.Parsable) *CallToolResult {
	out, err := graph.FormatResponse(v)
	if err != nil {
		return errorResult(graph.FormatError(err))
	}
	return textResult(out)
}

// valueResult renders a plain value as JSON.
func valueResult(v interface{}) *CallToolResult {
	out, err := graph.FormatValue(v)
	if err != nil {
		return errorResult(graph.FormatError(err))
	}
	return textResult(out)
}

// graphError reports a failed Graph call, including auth failures raised
// while the request was being authenticated.
func graphError(err error) *CallToolResult {
	return errorResult(graph.FormatError(err))
}

// argError reports invalid arguments in the same shape as Graph errors.
func argError(err error) *CallToolResult {
	return errorResult(graph.FormatError(err))
}
