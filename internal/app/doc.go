// Package app provides application bootstrap and lifecycle management for Helix.
//
// The package wires the components together in dependency order:
//
//	config -> logging -> token store -> identity client -> credential
//	       -> login manager -> Graph client factory -> tools -> MCP server
//
// # Components
//
//   - Configuration (config.go): runtime options and command-line overrides
//   - Services (services.go): token store backend selection, credential
//     resolution, tool providers and the MCP server
//   - Bootstrap (bootstrap.go): logging, configuration loading and the
//     Application type
//   - Modes (modes.go): the serve loop with signal handling
//
// # Token Store Selection
//
// OpenTokenStore offers the OS keyring first (unless cache.keyring is false),
// then an age-encrypted file when the passphrase variable is set, and always
// falls back to an owner-only plain file. The choice is made once per process.
//
// # Cache Watching
//
// With a file-backed cache, a watcher drops the credential's in-memory tokens
// whenever another process (for example `helix login`) rewrites or removes the
// cache file, so the running server picks up the new account immediately.
//
// # Logging
//
// Logs go to stderr. The stdio transport owns stdout, and anything else
// written there would corrupt the protocol stream.
//
// The CLI commands share InitializeAuth and OpenTokenStore so that `helix
// login`, `helix logout` and `helix status` operate on exactly the cache the
// server reads.
package app
