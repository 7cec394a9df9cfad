package tools

import (
	"context"
	"fmt"
	"net/http"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
)

// ClientSource hands out Graph clients. *graph.ClientFactory implements it.
type ClientSource interface {
	Create() (*msgraphsdk.GraphServiceClient, error)
	BaseURL() string
	HTTPClient(ctx context.Context) *http.Client
}

// Tool names served by SystemProvider.
const (
	ToolGetVersion     = "get-version"
	ToolGetCurrentUser = "get-current-user"
)

// SystemProvider serves server metadata and the signed-in user's profile.
type SystemProvider struct {
	version string
	clients ClientSource
}

// NewSystemProvider creates the system tool provider.
func NewSystemProvider(version string, clients ClientSource) *SystemProvider {
	return &SystemProvider{version: version, clients: clients}
}

// GetTools implements ToolProvider.
func (p *SystemProvider) GetTools() []ToolMetadata {
	return []ToolMetadata{
		{
			Name:        ToolGetVersion,
			Description: "Get the version of the helix server.",
			Annotations: Annotations{ReadOnly: true, Idempotent: true, LocalOnly: true},
		},
		{
			Name:        ToolGetCurrentUser,
			Description: "Get the profile of the signed-in Microsoft 365 user.",
			Annotations: ReadOnly(),
		},
	}
}

// ExecuteTool implements ToolProvider.
func (p *SystemProvider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	switch toolName {
	case ToolGetVersion:
		return valueResult(map[string]string{"version": p.version}), nil
	case ToolGetCurrentUser:
		client, err := p.clients.Create()
		if err != nil {
			return graphError(err), nil
		}
		me, err := client.Me().Get(ctx, nil)
		if err != nil {
			return graphError(err), nil
		}
		return graphResult(me), nil
	default:
		return nil, fmt.Errorf("unknown system tool: %s", toolName)
	}
}
