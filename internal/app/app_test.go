package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"helix/internal/auth"
	"helix/internal/config"
	"helix/internal/server"
	"helix/internal/tools"
)

func boolPtr(b bool) *bool { return &b }

// fileCacheConfig keeps the cache out of the OS keyring and the user's
// config directory.
func fileCacheConfig(t *testing.T) config.HelixConfig {
	t.Helper()
	t.Setenv(config.DefaultPassphraseEnv, "")
	hc := config.GetDefaultConfig()
	hc.Cache.Dir = t.TempDir()
	hc.Cache.Keyring = boolPtr(false)
	return hc
}

func TestOverrides_Apply(t *testing.T) {
	hc := config.GetDefaultConfig()

	Overrides{}.Apply(&hc)
	assert.Equal(t, config.MCPTransportStdio, hc.Server.Transport)
	assert.Equal(t, 8090, hc.Server.Port)
	assert.False(t, hc.ReadOnly)

	Overrides{Transport: config.MCPTransportSSE, Host: "0.0.0.0", Port: 9000, ReadOnly: true}.Apply(&hc)
	assert.Equal(t, config.MCPTransportSSE, hc.Server.Transport)
	assert.Equal(t, "0.0.0.0", hc.Server.Host)
	assert.Equal(t, 9000, hc.Server.Port)
	assert.True(t, hc.ReadOnly)
}

func TestLoadConfig_FromDirectory(t *testing.T) {
	t.Setenv(config.EnvClientID, "")
	t.Setenv(config.EnvAccessToken, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
clientId: my-client
readOnly: true
server:
  transport: streamable-http
  port: 9100
`), 0o600))

	cfg := NewConfig(false, dir, "test")
	cfg.Overrides.Port = 9200

	hc, err := LoadConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "my-client", hc.ClientID)
	assert.Equal(t, config.DefaultTenantID, hc.TenantID)
	assert.True(t, hc.ReadOnly)
	assert.Equal(t, config.MCPTransportStreamableHTTP, hc.Server.Transport)
	assert.Equal(t, 9200, hc.Server.Port)
	assert.Same(t, hc, cfg.HelixConfig)
}

func TestLoadConfig_OverrideIsValidated(t *testing.T) {
	hc := config.GetDefaultConfig()
	cfg := &Config{
		HelixConfig: &hc,
		Overrides:   Overrides{Transport: "carrier-pigeon"},
	}

	_, err := LoadConfig(cfg)
	var cfgErr config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "server.transport")
}

func TestOpenTokenStore(t *testing.T) {
	t.Run("plain file when keyring disabled", func(t *testing.T) {
		hc := fileCacheConfig(t)

		store, err := OpenTokenStore(hc.Cache)
		require.NoError(t, err)
		assert.Equal(t, "file", store.BackendName())
		assert.Equal(t, filepath.Join(hc.Cache.Dir, config.DefaultCacheFileName), store.Path())
	})

	t.Run("encrypted file with passphrase", func(t *testing.T) {
		hc := fileCacheConfig(t)
		t.Setenv(config.DefaultPassphraseEnv, "correct horse battery staple")

		store, err := OpenTokenStore(hc.Cache)
		require.NoError(t, err)
		assert.Equal(t, "sealed-file", store.BackendName())
		assert.Equal(t, filepath.Join(hc.Cache.Dir, config.DefaultCacheFileName+".age"), store.Path())
	})

	t.Run("keyring first", func(t *testing.T) {
		keyring.MockInit()
		hc := fileCacheConfig(t)
		hc.Cache.Keyring = nil

		store, err := OpenTokenStore(hc.Cache)
		require.NoError(t, err)
		assert.Equal(t, "keyring", store.BackendName())
		assert.Empty(t, store.Path())
	})

	t.Run("custom file name", func(t *testing.T) {
		hc := fileCacheConfig(t)
		hc.Cache.FileName = "other.bin"

		store, err := OpenTokenStore(hc.Cache)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(hc.Cache.Dir, "other.bin"), store.Path())
	})
}

func TestInitializeAuth_NoCredentialInputs(t *testing.T) {
	_, err := InitializeAuth(fileCacheConfig(t))

	var cfgErr *auth.AuthConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestInitializeAuth_StaticTokenSkipsCache(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.AccessToken = "tok123"
	hc.ClientID = "ignored"

	svc, err := InitializeAuth(hc)
	require.NoError(t, err)
	assert.Equal(t, auth.KindStatic, svc.Strategy.Kind())
	assert.Nil(t, svc.Store)
	assert.Nil(t, svc.Login)
	assert.Nil(t, svc.Watcher)

	tok, err := svc.Credential.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "tok123", tok.Value)
}

func TestInitializeAuth_Interactive(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.ClientID = "00000000-0000-0000-0000-000000000001"

	svc, err := InitializeAuth(hc)
	require.NoError(t, err)
	assert.Equal(t, auth.KindInteractive, svc.Strategy.Kind())
	require.NotNil(t, svc.Store)
	require.NotNil(t, svc.Identity)
	require.NotNil(t, svc.Login)
	require.NotNil(t, svc.Watcher)
	assert.Equal(t, filepath.Join(hc.Cache.Dir, config.DefaultCacheFileName), svc.Store.Path())

	// No account has been cached yet.
	_, err = svc.Credential.Fetch(context.Background(), nil)
	var noAccount *auth.NoCachedAccountError
	assert.True(t, errors.As(err, &noAccount))

	res := svc.Login.Logout(context.Background())
	assert.Equal(t, 0, res.Removed)
}

func TestProviders_ToolSet(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.AccessToken = "tok123"

	cfg := &Config{Version: "1.0.0", HelixConfig: &hc}
	services, err := InitializeServices(cfg)
	require.NoError(t, err)

	all, err := tools.NewFilter(false, "")
	require.NoError(t, err)
	readOnly, err := tools.NewFilter(true, "")
	require.NoError(t, err)

	providers := Providers(cfg.Version, services.Auth, services.Clients)
	full := tools.BuildServerTools(all, providers...)
	limited := tools.BuildServerTools(readOnly, providers...)

	assert.Len(t, full, 44)
	assert.Less(t, len(limited), len(full))
	for _, st := range limited {
		assert.NotContains(t, []string{"send-mail", "delete-mail-message", "create-calendar-event"}, st.Tool.Name)
	}
}

func TestInitializeServices_RequiresConfig(t *testing.T) {
	_, err := InitializeServices(&Config{})
	assert.Error(t, err)
}

func TestInitializeServices_InvalidToolPattern(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.AccessToken = "tok123"
	hc.EnabledTools = "("

	_, err := InitializeServices(&Config{HelixConfig: &hc})
	var cfgErr config.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestApplication_RunEndsWhenStdinCloses(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.AccessToken = "tok123"

	inR, inW := io.Pipe()
	cfg := &Config{Version: "1.0.0", HelixConfig: &hc}
	application, err := NewApplication(cfg, server.WithStdio(inR, io.Discard))
	require.NoError(t, err)
	require.NotNil(t, application.Services().Server)

	done := make(chan error, 1)
	go func() { done <- application.Run(context.Background()) }()

	require.NoError(t, inW.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stdin closed")
	}
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	hc := fileCacheConfig(t)
	hc.ClientID = "00000000-0000-0000-0000-000000000001"

	inR, _ := io.Pipe()
	cfg := &Config{Version: "1.0.0", HelixConfig: &hc}
	application, err := NewApplication(cfg, server.WithStdio(inR, io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
