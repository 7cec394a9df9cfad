package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"helix/internal/config"
	"helix/pkg/logging"
)

const (
	// Name is the server name reported during MCP initialization.
	Name = "helix"

	// DefaultReadHeaderTimeout bounds how long HTTP transports wait for request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

const instructions = "Helix gives access to the signed-in user's Microsoft 365 mail, calendar and SharePoint. " +
	"If a tool reports that authentication is required, call 'login', show the user the URL and code, " +
	"then call 'login-status' once they have signed in."

// Server runs the MCP server on the configured transport.
type Server struct {
	cfg config.ServerConfig
	mcp *mcpserver.MCPServer

	stdin  io.Reader
	stdout io.Writer

	mu         sync.Mutex
	started    bool
	cancel     context.CancelFunc
	httpServer *http.Server
	sseServer  *mcpserver.SSEServer
	listener   net.Listener
	done       chan error
}

// Option configures a Server.
type Option func(*Server)

// WithStdio replaces the process's stdin and stdout for the stdio transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.stdin = in
		s.stdout = out
	}
}

// New creates a server that exposes tools. Nothing listens until Start.
func New(cfg config.ServerConfig, version string, tools []mcpserver.ServerTool, opts ...Option) *Server {
	mcp := mcpserver.NewMCPServer(
		Name,
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
	)
	mcp.AddTools(tools...)

	s := &Server{
		cfg:    cfg,
		mcp:    mcp,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		done:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Done is signalled once the transport stops. It carries the transport's
// error, or nil when it stopped cleanly (stdin closed, Stop called).
func (s *Server) Done() <-chan error {
	return s.done
}

func (s *Server) address() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
}

func (s *Server) basePath() string {
	if s.cfg.BasePath == "" {
		return "/mcp"
	}
	return s.cfg.BasePath
}

// Start begins serving in the background. HTTP transports bind their port
// before Start returns, so a port conflict is reported here.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("server already started")
	}

	ctx, cancel := context.WithCancel(ctx)

	switch s.cfg.Transport {
	case config.MCPTransportSSE:
		if err := s.startSSE(ctx); err != nil {
			cancel()
			return err
		}

	case config.MCPTransportStreamableHTTP:
		if err := s.startStreamableHTTP(ctx); err != nil {
			cancel()
			return err
		}

	case config.MCPTransportStdio, "":
		logging.Info("Server", "Serving MCP over stdio")
		stdio := mcpserver.NewStdioServer(s.mcp)
		go func() {
			err := stdio.Listen(ctx, s.stdin, s.stdout)
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				err = nil
			}
			s.finish(err)
		}()

	default:
		cancel()
		return fmt.Errorf("unsupported transport %q", s.cfg.Transport)
	}

	s.cancel = cancel
	s.started = true
	return nil
}

func (s *Server) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.address(), err)
	}
	s.listener = ln
	return ln, nil
}

func (s *Server) startStreamableHTTP(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	streamable := mcpserver.NewStreamableHTTPServer(s.mcp, mcpserver.WithEndpointPath(s.basePath()))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle(s.basePath(), streamable)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logging.Info("Server", "Serving MCP over streamable-http on %s", s.Endpoint())
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.finish(err)
	}()
	return nil
}

func (s *Server) startSSE(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	baseURL := fmt.Sprintf("http://%s", ln.Addr().String())
	s.sseServer = mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(baseURL),
		mcpserver.WithSSEEndpoint("/sse"),
		mcpserver.WithMessageEndpoint("/message"),
		mcpserver.WithKeepAlive(true),
		mcpserver.WithKeepAliveInterval(30*time.Second),
	)
	s.httpServer = &http.Server{
		Handler:           s.sseServer,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		// Request contexts end with Stop so open event streams close.
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logging.Info("Server", "Serving MCP over SSE on %s", s.Endpoint())
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.finish(err)
	}()
	return nil
}

func (s *Server) finish(err error) {
	if err != nil {
		logging.Error("Server", err, "MCP transport stopped")
	}
	select {
	case s.done <- err:
	default:
	}
}

// Stop shuts the transport down and waits up to a few seconds for in-flight
// requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("server not started")
	}
	cancel := s.cancel
	httpServer := s.httpServer
	sseServer := s.sseServer
	s.started = false
	s.mu.Unlock()

	logging.Info("Server", "Stopping MCP server")
	cancel()

	shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
	defer done()

	var errs []error
	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("sse shutdown: %w", err))
		}
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	// The stdio transport stops when its context is cancelled.
	return errors.Join(errs...)
}

// Endpoint returns the URL clients connect to, or "stdio".
func (s *Server) Endpoint() string {
	addr := s.address()
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}

	switch s.cfg.Transport {
	case config.MCPTransportSSE:
		return fmt.Sprintf("http://%s/sse", addr)
	case config.MCPTransportStreamableHTTP:
		return fmt.Sprintf("http://%s%s", addr, s.basePath())
	default:
		return "stdio"
	}
}
