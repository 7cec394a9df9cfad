package config

// HelixConfig is the top-level configuration structure for helix.
type HelixConfig struct {
	Credentials `yaml:",inline"`

	// ReadOnly drops every tool that is not annotated as read-only.
	ReadOnly bool `yaml:"readOnly,omitempty"`
	// OrgMode enables organisation-wide tools that require admin-consented scopes.
	OrgMode bool `yaml:"orgMode,omitempty"`
	// EnabledTools is a regular expression; when set only matching tool names are registered.
	EnabledTools string `yaml:"enabledTools,omitempty"`

	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
}

// CloudType identifies the Microsoft cloud deployment the server talks to.
type CloudType string

const (
	// CloudGlobal is the worldwide commercial cloud.
	CloudGlobal CloudType = "global"
	// CloudChina is the 21Vianet operated national cloud.
	CloudChina CloudType = "china"
)

// Credentials holds the inputs used to decide how tokens are acquired.
// It is immutable once loaded.
type Credentials struct {
	ClientID     string    `yaml:"clientId,omitempty"`
	TenantID     string    `yaml:"tenantId,omitempty"`
	ClientSecret string    `yaml:"clientSecret,omitempty"`
	AccessToken  string    `yaml:"accessToken,omitempty"`
	CloudType    CloudType `yaml:"cloudType,omitempty"`
}

const (
	// MCPTransportStreamableHTTP is the streamable HTTP transport.
	MCPTransportStreamableHTTP = "streamable-http"
	// MCPTransportSSE is the Server-Sent Events transport.
	MCPTransportSSE = "sse"
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

// ServerConfig defines how the MCP server is exposed.
type ServerConfig struct {
	Transport string `yaml:"transport,omitempty"` // Transport to use (default: stdio)
	Host      string `yaml:"host,omitempty"`      // Host to bind to for HTTP transports (default: localhost)
	Port      int    `yaml:"port,omitempty"`      // Port for HTTP transports (default: 8090)
	BasePath  string `yaml:"basePath,omitempty"`  // Endpoint path for streamable-http (default: /mcp)
}

// CacheConfig controls where the identity cache blob is persisted.
type CacheConfig struct {
	// Dir overrides the per-user application data directory.
	Dir string `yaml:"dir,omitempty"`
	// FileName is the name of the cache artifact inside Dir.
	FileName string `yaml:"fileName,omitempty"`
	// Keyring enables the OS keyring backend candidate.
	Keyring *bool `yaml:"keyring,omitempty"`
	// PassphraseEnv names the environment variable holding the passphrase
	// for the encrypted file backend. The backend is skipped when unset.
	PassphraseEnv string `yaml:"passphraseEnv,omitempty"`
}

// KeyringEnabled reports whether the OS keyring backend should be attempted.
func (c CacheConfig) KeyringEnabled() bool {
	return c.Keyring == nil || *c.Keyring
}

// HasCredentialInputs reports whether any credential strategy can be built.
func (c Credentials) HasCredentialInputs() bool {
	return c.AccessToken != "" || c.ClientSecret != "" || c.ClientID != ""
}
