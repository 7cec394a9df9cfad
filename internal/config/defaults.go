package config

const (
	// DefaultTenantID lets any work, school or personal account sign in.
	DefaultTenantID = "common"

	// DefaultCacheFileName is the name of the persisted identity cache artifact.
	DefaultCacheFileName = "helix-token-cache.bin"

	// DefaultPassphraseEnv is the environment variable read for the encrypted cache passphrase.
	DefaultPassphraseEnv = "HELIX_CACHE_PASSPHRASE"

	// AppDataFolder is the per-user application folder holding the cache.
	AppDataFolder = "Helix"
)

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() HelixConfig {
	return HelixConfig{
		Credentials: Credentials{
			TenantID:  DefaultTenantID,
			CloudType: CloudGlobal,
		},
		Server: ServerConfig{
			Transport: MCPTransportStdio,
			Host:      "localhost",
			Port:      8090,
			BasePath:  "/mcp",
		},
		Cache: CacheConfig{
			FileName:      DefaultCacheFileName,
			PassphraseEnv: DefaultPassphraseEnv,
		},
	}
}
