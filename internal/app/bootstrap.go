package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"helix/internal/config"
	"helix/internal/server"
	"helix/pkg/logging"
)

// Application bootstraps and runs the Helix MCP server.
//
// Initialization happens in two phases:
//  1. Bootstrap: load configuration, initialize logging, build services
//  2. Execution: serve MCP requests until a signal or the transport ends
//
// Example usage:
//
//	cfg := app.NewConfig(false, "", version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// InitLogging configures logging for the process. Logs always go to
// stderr because stdout carries the stdio transport.
func InitLogging(debug bool, output io.Writer) {
	level := logging.LevelInfo
	if debug {
		level = logging.LevelDebug
	}
	if output == nil {
		output = os.Stderr
	}
	logging.InitForCLI(level, output)
}

// LoadConfig loads the Helix configuration for cfg and applies its flag
// overrides. A pre-populated cfg.HelixConfig is only re-validated.
func LoadConfig(cfg *Config) (*config.HelixConfig, error) {
	if cfg.HelixConfig == nil {
		hc, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.HelixConfig = &hc
	}

	cfg.Overrides.Apply(cfg.HelixConfig)
	if errs := config.Validate(*cfg.HelixConfig); errs.HasErrors() {
		return nil, config.ConfigurationError{ErrorType: "validation", Message: errs.Error()}
	}
	return cfg.HelixConfig, nil
}

// NewApplication creates and initializes a new application instance.
// It performs the complete bootstrap sequence:
//
//  1. Configures logging based on the debug setting
//  2. Loads configuration (file, .env, environment, flags)
//  3. Resolves the credential strategy and opens the token cache
//  4. Builds the Graph client factory, tool set and MCP server
func NewApplication(cfg *Config, opts ...server.Option) (*Application, error) {
	InitLogging(cfg.Debug, nil)

	if _, err := LoadConfig(cfg); err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, err
	}

	services, err := InitializeServices(cfg, opts...)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves MCP requests. It blocks until ctx is cancelled, SIGINT or
// SIGTERM is received, or the transport ends (stdin closed for stdio).
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}
