package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/config"
)

func echoTool() mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        "echo",
			Description: "Echo the message argument",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"message": map[string]interface{}{"type": "string"}},
			},
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			msg, _ := req.GetArguments()["message"].(string)
			return mcp.NewToolResultText(msg), nil
		},
	}
}

func initialize(t *testing.T, ctx context.Context, c *client.Client) *mcp.InitializeResult {
	t.Helper()
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "helix-test", Version: "0.0.0"}
	res, err := c.Initialize(ctx, req)
	require.NoError(t, err)
	return res
}

func callEcho(t *testing.T, ctx context.Context, c *client.Client) string {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = "echo"
	req.Params.Arguments = map[string]interface{}{"message": "hi"}
	res, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_InProcess(t *testing.T) {
	s := New(config.ServerConfig{Transport: config.MCPTransportStdio}, "1.2.3", []mcpserver.ServerTool{echoTool()})
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	res := initialize(t, ctx, c)
	assert.Equal(t, Name, res.ServerInfo.Name)
	assert.Equal(t, "1.2.3", res.ServerInfo.Version)
	assert.Contains(t, res.Instructions, "login-status")

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "echo", tools.Tools[0].Name)

	assert.Equal(t, "hi", callEcho(t, ctx, c))
}

func TestServer_StreamableHTTP(t *testing.T) {
	cfg := config.ServerConfig{Transport: config.MCPTransportStreamableHTTP, Host: "127.0.0.1", Port: 0, BasePath: "/mcp"}
	s := New(cfg, "1.2.3", []mcpserver.ServerTool{echoTool()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Stop(context.Background()) }()

	endpoint := s.Endpoint()
	assert.True(t, strings.HasPrefix(endpoint, "http://127.0.0.1:"), endpoint)
	assert.True(t, strings.HasSuffix(endpoint, "/mcp"), endpoint)

	resp, err := http.Get(strings.TrimSuffix(endpoint, "/mcp") + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	c, err := client.NewStreamableHttpClient(endpoint)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	initialize(t, ctx, c)
	assert.Equal(t, "hi", callEcho(t, ctx, c))
}

func TestServer_Stdio(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	s := New(config.ServerConfig{Transport: config.MCPTransportStdio}, "1.2.3", []mcpserver.ServerTool{echoTool()},
		WithStdio(inR, outW))
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, "stdio", s.Endpoint())

	go func() {
		_, _ = io.WriteString(inW, `{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")
	}()

	line := make([]byte, 256)
	n, err := outR.Read(line)
	require.NoError(t, err)
	assert.Contains(t, string(line[:n]), `"id":1`)

	require.NoError(t, s.Stop(context.Background()))
	_ = inW.Close()

	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stdio transport did not stop")
	}
}

func TestServer_StartTwiceAndUnknownTransport(t *testing.T) {
	s := New(config.ServerConfig{Transport: "carrier-pigeon"}, "1", nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")

	require.Error(t, s.Stop(context.Background()))

	inR, _ := io.Pipe()
	s = New(config.ServerConfig{Transport: config.MCPTransportStdio}, "1", nil, WithStdio(inR, io.Discard))
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestServer_PortInUse(t *testing.T) {
	cfg := config.ServerConfig{Transport: config.MCPTransportStreamableHTTP, Host: "127.0.0.1", Port: 0}
	first := New(cfg, "1", nil)
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	cfg.Port = first.listener.Addr().(*net.TCPAddr).Port
	second := New(cfg, "1", nil)
	err := second.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
