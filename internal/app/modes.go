package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helix/pkg/logging"
)

// shutdownGrace bounds how long Stop may take once a shutdown begins.
const shutdownGrace = 5 * time.Second

// runServer starts the cache watcher and the MCP server, then waits for a
// signal, context cancellation, or the server finishing on its own.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
func runServer(ctx context.Context, services *Services) error {
	if w := services.Auth.Watcher; w != nil {
		if err := w.Start(); err != nil {
			// Without the watcher a login from another process is only seen
			// once the in-memory token expires.
			logging.WarnErr("Server", err, "Token cache watcher unavailable")
		} else {
			defer func() {
				if err := w.Stop(); err != nil {
					logging.WarnErr("Server", err, "Failed to stop token cache watcher")
				}
			}()
		}
	}

	srv := services.Server
	if err := srv.Start(ctx); err != nil {
		logging.Error("Server", err, "Failed to start MCP server")
		return err
	}
	logging.Info("Server", "Helix MCP server listening on %s", srv.Endpoint())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		logging.Info("Server", "Received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("Server", "Context cancelled, shutting down")
	case runErr = <-srv.Done():
		if runErr != nil {
			logging.Error("Server", runErr, "MCP server stopped")
		} else {
			logging.Info("Server", "MCP transport closed")
		}
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnErr("Server", err, "Error during shutdown")
	}

	return runErr
}
