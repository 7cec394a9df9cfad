// Package config provides configuration management for helix.
//
// Configuration is layered. Later layers override earlier ones:
//
//  1. Built-in defaults (tenant "common", global cloud, stdio transport)
//  2. config.yaml in the configuration directory (default: the user config dir + /helix)
//  3. A .env file in the working directory, loaded into the process environment
//  4. HELIX_* environment variables
//  5. Command line flags, applied by the cmd package
//
// # Credentials
//
// The credential fields decide which token strategy the server uses. The
// precedence between them is owned by the auth package; this package only
// loads and normalises the values.
//
//	clientId: 00000000-0000-0000-0000-000000000000
//	tenantId: common
//	cloudType: global
//	readOnly: true
//	server:
//	  transport: streamable-http
//	  port: 8090
//	cache:
//	  keyring: true
//
// # Clouds
//
// Cloud returns the login authority, Graph endpoint and scopes for the global
// and China clouds.
package config
