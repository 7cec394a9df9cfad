package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/auth"
)

// allProviders returns every provider with no Graph client behind it.
func allProviders() []ToolProvider {
	return []ToolProvider{
		NewAuthProvider(nil, auth.KindInteractive),
		NewSystemProvider("1.2.3", nil),
		NewMailProvider(nil),
		NewCalendarProvider(nil),
		NewSharePointProvider(nil),
	}
}

func serverToolNames(filter Filter) []string {
	var names []string
	for _, tool := range BuildServerTools(filter, allProviders()...) {
		names = append(names, tool.Tool.Name)
	}
	return names
}

func TestBuildServerTools_AllTools(t *testing.T) {
	names := serverToolNames(Filter{})
	assert.Len(t, names, 44)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, ToolLogin)
	assert.Contains(t, names, ToolSendMail)
	assert.Contains(t, names, ToolDownloadDriveItem)
}

func TestBuildServerTools_ReadOnlyKeepsSessionTools(t *testing.T) {
	names := serverToolNames(Filter{ReadOnly: true})

	assert.Contains(t, names, ToolLogin)
	assert.Contains(t, names, ToolLoginStatus)
	assert.Contains(t, names, ToolLogout)
	assert.Contains(t, names, ToolListMailMessages)
	assert.Contains(t, names, ToolListCalendarView)
	assert.Contains(t, names, ToolGetVersion)

	for _, writer := range []string{
		ToolSendMail, ToolDeleteMailMessage, ToolMoveMailMessage, ToolUpdateMailMessage,
		ToolCreateDraftMessage, ToolSendDraftMessage, ToolAddMailAttachment,
		ToolCreateCalendarEvent, ToolRespondToEvent, ToolCreateListItem, ToolDeleteListItem,
	} {
		assert.NotContains(t, names, writer)
	}
}

func TestBuildServerTools_EnabledPattern(t *testing.T) {
	filter, err := NewFilter(false, "^(list-mail|login)")
	require.NoError(t, err)

	names := serverToolNames(filter)
	assert.Equal(t, []string{
		ToolListMailAttachments,
		ToolListMailFolderMessages,
		ToolListMailFolders,
		ToolListMailMessages,
		ToolLogin,
		ToolLoginStatus,
	}, names)
}

func TestNewFilter_InvalidPattern(t *testing.T) {
	_, err := NewFilter(false, "(")
	require.Error(t, err)
}

type duplicateProvider struct{ AuthProvider }

func TestBuildServerTools_DuplicatesAndNilProviders(t *testing.T) {
	first := NewAuthProvider(nil, auth.KindInteractive)
	tools := BuildServerTools(Filter{}, first, nil, &duplicateProvider{})
	assert.Len(t, tools, 3)
}

func TestBuildServerTools_Annotations(t *testing.T) {
	byName := make(map[string]mcp.Tool)
	for _, tool := range BuildServerTools(Filter{}, allProviders()...) {
		byName[tool.Tool.Name] = tool.Tool
	}

	list := byName[ToolListMailMessages].Annotations
	assert.True(t, *list.ReadOnlyHint)
	assert.False(t, *list.DestructiveHint)
	assert.True(t, *list.OpenWorldHint)

	del := byName[ToolDeleteCalendarEvent].Annotations
	assert.False(t, *del.ReadOnlyHint)
	assert.True(t, *del.DestructiveHint)

	login := byName[ToolLogin].Annotations
	assert.False(t, *login.OpenWorldHint)
}

func TestConvertToMCPSchema(t *testing.T) {
	schema := convertToMCPSchema([]ArgMetadata{
		{Name: "messageId", Type: "string", Required: true, Description: "id"},
		{Name: "sendResponse", Type: "boolean", Default: true},
		{Name: "response", Required: true, Description: "pick one", Schema: map[string]interface{}{"type": "string", "enum": []string{"a", "b"}}},
	})

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"messageId", "response"}, schema.Required)
	assert.Equal(t, map[string]interface{}{"type": "string", "description": "id"}, schema.Properties["messageId"])
	assert.Equal(t, true, schema.Properties["sendResponse"].(map[string]interface{})["default"])

	response := schema.Properties["response"].(map[string]interface{})
	assert.Equal(t, []string{"a", "b"}, response["enum"])
	assert.Equal(t, "pick one", response["description"])
}

type stubProvider struct {
	gotArgs map[string]interface{}
	result  *CallToolResult
	err     error
}

func (s *stubProvider) GetTools() []ToolMetadata {
	return []ToolMetadata{{Name: "stub", Annotations: ReadOnly()}}
}

func (s *stubProvider) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (*CallToolResult, error) {
	s.gotArgs = args
	return s.result, s.err
}

func TestCreateToolHandler(t *testing.T) {
	stub := &stubProvider{result: &CallToolResult{Content: []interface{}{"ok", map[string]int{"n": 1}}}}
	handler := createToolHandler(stub, "stub")

	req := mcp.CallToolRequest{}
	req.Params.Name = "stub"
	req.Params.Arguments = map[string]interface{}{"top": float64(5)}

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.Equal(t, "ok", res.Content[0].(mcp.TextContent).Text)
	assert.Equal(t, `{"n":1}`, res.Content[1].(mcp.TextContent).Text)
	assert.Equal(t, float64(5), stub.gotArgs["top"])
}

func TestCreateToolHandler_ExecutionError(t *testing.T) {
	stub := &stubProvider{err: assert.AnError}
	res, err := createToolHandler(stub, "stub")(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "Tool execution failed")
	assert.NotNil(t, stub.gotArgs)
}
