package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"helix/internal/app"
	"helix/internal/config"
)

// Serve-specific flags
var (
	serveTransport string
	serveHost      string
	servePort      int
	serveReadOnly  bool
)

// serveCmd starts the MCP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Microsoft 365 MCP server",
	Long: `Starts the Helix MCP server.

Transports:
  stdio            (default) JSON-RPC over stdin/stdout, for MCP clients that
                   launch helix as a subprocess. Logs go to stderr.
  streamable-http  HTTP endpoint at http://<host>:<port>/mcp
  sse              Server-sent events at http://<host>:<port>/sse

Authentication, in order of precedence:
  HELIX_ACCESS_TOKEN                      a ready-made Graph token
  HELIX_CLIENT_SECRET + HELIX_CLIENT_ID   app-only access for a specific tenant
  HELIX_CLIENT_ID                         a user signed in with 'helix login'
                                          or the 'login' tool

Configuration is read from config.yaml in the user config directory (or the
directory given with --config), then .env, then HELIX_* environment variables,
then these flags.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, configPath, GetVersion())
	cfg.Overrides = app.Overrides{
		Transport: serveTransport,
		Host:      serveHost,
		Port:      servePort,
		ReadOnly:  serveReadOnly,
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(commandContext(cmd))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTransport, "transport", "",
		fmt.Sprintf("MCP transport: %s, %s or %s", config.MCPTransportStdio, config.MCPTransportStreamableHTTP, config.MCPTransportSSE))
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind for HTTP transports")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port for HTTP transports")
	serveCmd.Flags().BoolVar(&serveReadOnly, "read-only", false, "Only register tools that do not modify Microsoft 365 data")
}
