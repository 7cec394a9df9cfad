package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"helix/internal/auth"
	"helix/internal/config"
)

// runCommand executes the root command with args and returns what was
// written to stdout and stderr.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// isolateEnv clears credential variables and points the cache at a
// temporary directory with an in-memory keyring.
func isolateEnv(t *testing.T) string {
	t.Helper()
	keyring.MockInit()

	for _, key := range []string{
		config.EnvClientID, config.EnvTenantID, config.EnvClientSecret, config.EnvAccessToken,
		config.EnvCloudType, config.EnvReadOnly, config.EnvOrgMode, config.EnvEnabledTools,
		config.DefaultPassphraseEnv,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvCacheDir, t.TempDir())
	return t.TempDir()
}

func TestStatus_StaticToken(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvAccessToken, "tok123")

	stdout, _, err := runCommand(t, "status", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "static-token")
	assert.Contains(t, stdout, "global")
	assert.NotContains(t, stdout, "Cache backend")
	assert.NotContains(t, stdout, "tok123")
}

func TestStatus_InteractiveWithoutAccount(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvClientID, "00000000-0000-0000-0000-000000000001")

	stdout, _, err := runCommand(t, "status", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "interactive")
	assert.Contains(t, stdout, "keyring")
	assert.Contains(t, stdout, "none (run 'helix login')")
}

func TestStatus_NoCredentials(t *testing.T) {
	dir := isolateEnv(t)

	_, _, err := runCommand(t, "status", "--config", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCodeConfig, getExitCode(err))
}

func TestLogin_RequiresInteractiveStrategy(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvAccessToken, "tok123")

	_, _, err := runCommand(t, "login", "--config", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "static-token")
	assert.Equal(t, ExitCodeConfig, getExitCode(err))
}

func TestLogout_Interactive(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvClientID, "00000000-0000-0000-0000-000000000001")

	_, stderr, err := runCommand(t, "logout", "--config", dir)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Removed account:")
	assert.Contains(t, stderr, "Logged out. Token cache cleared.")
}

func TestLogout_NonInteractive(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvAccessToken, "tok123")

	_, stderr, err := runCommand(t, "logout", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Nothing to log out: the static-token strategy does not cache user accounts.")
}

func TestServe_InvalidTransport(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv(config.EnvAccessToken, "tok123")
	defer func() { serveTransport = "" }()

	_, _, err := runCommand(t, "serve", "--config", dir, "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Equal(t, ExitCodeConfig, getExitCode(err))
}

func TestFormatSilentOutcome(t *testing.T) {
	assert.Contains(t, formatSilentOutcome(auth.Expired(nil)), "expired (run 'helix login')")
	assert.Contains(t, formatSilentOutcome(auth.Invalid(errors.New("invalid_grant"))), "invalid (run 'helix login')")

	failed := formatSilentOutcome(auth.Failed(errors.New("dial tcp: lookup login.microsoftonline.com\nno such host")))
	assert.Contains(t, failed, "refresh failed: dial tcp: lookup login.microsoftonline.com no such host")

	fresh := formatSilentOutcome(auth.Fresh(auth.Token{Value: "t", ExpiresAt: time.Date(2030, 1, 2, 3, 4, 0, 0, time.Local)}))
	assert.Contains(t, fresh, "valid until 2030-01-02 03:04")
}
