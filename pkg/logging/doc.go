// Package logging provides subsystem-tagged structured logging for helix.
//
// The package wraps log/slog. Every entry carries a subsystem attribute and an
// optional error attribute:
//
//	logging.Info("Bootstrap", "Using %s credential strategy", strategy)
//	logging.Error("TokenStore", err, "Failed to persist cache")
//
// Output goes to stderr by default. The stdio MCP transport owns stdout, so
// nothing in helix may log there while serving.
//
// Init also installs the logger as slog's default so that SECURITY_AUDIT
// records emitted with slog directly end up in the same stream. Token values
// and cache contents must never be passed to any logging call.
package logging
