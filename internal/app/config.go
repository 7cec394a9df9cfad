package app

import (
	"helix/internal/config"
)

// Overrides are command-line values that take precedence over the loaded
// configuration. Zero values leave the configuration untouched.
type Overrides struct {
	Transport string
	Host      string
	Port      int
	ReadOnly  bool
}

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Directory holding config.yaml (optional).
	// When empty the per-user config directory is used.
	ConfigPath string

	// Version reported by the get-version tool and the MCP handshake
	Version string

	// Flag overrides applied after file and environment loading
	Overrides Overrides

	// Loaded Helix configuration
	HelixConfig *config.HelixConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Version:    version,
	}
}

// Apply overlays the flag overrides onto hc.
func (o Overrides) Apply(hc *config.HelixConfig) {
	if o.Transport != "" {
		hc.Server.Transport = o.Transport
	}
	if o.Host != "" {
		hc.Server.Host = o.Host
	}
	if o.Port != 0 {
		hc.Server.Port = o.Port
	}
	if o.ReadOnly {
		hc.ReadOnly = true
	}
}
