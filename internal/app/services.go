package app

import (
	"fmt"
	"os"
	"path/filepath"

	"helix/internal/auth"
	"helix/internal/config"
	"helix/internal/graph"
	"helix/internal/server"
	"helix/internal/tokencache"
	"helix/internal/tools"
	"helix/pkg/logging"
)

// sealedSuffix is appended to the cache file name for the encrypted backend.
const sealedSuffix = ".age"

// AuthServices holds the token lifecycle components. Store, Identity, Login
// and Watcher are only set for the interactive strategy; the static and
// client-secret strategies never touch the persisted cache.
type AuthServices struct {
	Strategy   auth.Strategy
	Credential *auth.Credential

	Store    *tokencache.Store
	Identity *auth.MSALClient
	Login    *auth.LoginManager

	// Watcher is nil when the cache lives in the OS keyring.
	Watcher *tokencache.Watcher
}

// Services holds all initialized services used by the server.
type Services struct {
	Auth    *AuthServices
	Clients *graph.ClientFactory
	Server  *server.Server
}

// OpenTokenStore selects the cache backend for c. The keyring is tried first
// unless disabled, then the encrypted file when a passphrase is present in
// the environment, and finally the plain file.
func OpenTokenStore(c config.CacheConfig) (*tokencache.Store, error) {
	dir, err := config.ResolveCacheDir(c)
	if err != nil {
		return nil, err
	}
	fileName := c.FileName
	if fileName == "" {
		fileName = config.DefaultCacheFileName
	}
	path := filepath.Join(dir, fileName)

	var candidates []tokencache.Backend
	if c.KeyringEnabled() {
		candidates = append(candidates, tokencache.NewKeyringBackend())
	}

	passphraseEnv := c.PassphraseEnv
	if passphraseEnv == "" {
		passphraseEnv = config.DefaultPassphraseEnv
	}
	if passphrase := os.Getenv(passphraseEnv); passphrase != "" {
		candidates = append(candidates, tokencache.NewSealedFileBackend(path+sealedSuffix, passphrase))
	}

	return tokencache.Open(tokencache.NewFileBackend(path), candidates,
		tokencache.WithValidator(tokencache.JSONValidator))
}

// InitializeAuth resolves the credential strategy for hc and builds the
// components it needs. It fails with an AuthConfigurationError when no
// credential inputs are present.
func InitializeAuth(hc config.HelixConfig) (*AuthServices, error) {
	strategy, err := auth.ResolveStrategy(hc.Credentials)
	if err != nil {
		return nil, err
	}
	svc := &AuthServices{Strategy: strategy}
	logging.Info("Bootstrap", "Using %s credential strategy", strategy.Kind())

	var opts []auth.CredentialOption
	if strategy.Kind() == auth.KindInteractive {
		store, err := OpenTokenStore(hc.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to open token cache: %w", err)
		}
		identity, err := auth.NewMSALClient(hc.ClientID, hc.TenantID, hc.CloudType, tokencache.NewCacheAccessor(store))
		if err != nil {
			return nil, err
		}
		svc.Store = store
		svc.Identity = identity
		opts = append(opts, auth.WithIdentityClient(identity))
	}

	cred, err := auth.NewCredential(strategy, opts...)
	if err != nil {
		return nil, err
	}
	svc.Credential = cred

	if svc.Identity != nil {
		login, err := auth.NewLoginManager(svc.Identity, cred.Scopes(),
			auth.WithCacheClearer(svc.Store),
			auth.WithLogoutHook(cred.Invalidate))
		if err != nil {
			return nil, err
		}
		svc.Login = login

		if path := svc.Store.Path(); path != "" {
			svc.Watcher = tokencache.NewWatcher(path, func() {
				logging.Debug("Bootstrap", "Token cache changed on disk, dropping in-memory tokens")
				cred.Invalidate()
			})
		}
	}

	return svc, nil
}

// Providers returns every tool provider wired to the given services.
func Providers(version string, a *AuthServices, clients *graph.ClientFactory) []tools.ToolProvider {
	return []tools.ToolProvider{
		tools.NewAuthProvider(a.Login, a.Strategy.Kind()),
		tools.NewSystemProvider(version, clients),
		tools.NewMailProvider(clients),
		tools.NewCalendarProvider(clients),
		tools.NewSharePointProvider(clients),
	}
}

// InitializeServices builds the auth components, the Graph client factory,
// the filtered tool set and the MCP server.
func InitializeServices(cfg *Config, opts ...server.Option) (*Services, error) {
	hc := cfg.HelixConfig
	if hc == nil {
		return nil, fmt.Errorf("configuration has not been loaded")
	}

	authSvc, err := InitializeAuth(*hc)
	if err != nil {
		return nil, err
	}

	clients, err := graph.NewClientFactory(hc.CloudType, authSvc.Credential)
	if err != nil {
		return nil, err
	}

	filter, err := tools.NewFilter(hc.ReadOnly, hc.EnabledTools)
	if err != nil {
		return nil, config.ConfigurationError{ErrorType: "validation", Message: err.Error()}
	}
	if hc.OrgMode {
		logging.Debug("Bootstrap", "Organization mode enabled")
	}

	serverTools := tools.BuildServerTools(filter, Providers(cfg.Version, authSvc, clients)...)
	logging.Info("Bootstrap", "Registered %d tools (read-only: %t)", len(serverTools), hc.ReadOnly)

	return &Services{
		Auth:    authSvc,
		Clients: clients,
		Server:  server.New(hc.Server, cfg.Version, serverTools, opts...),
	}, nil
}
