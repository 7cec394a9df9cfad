// Package server exposes the helix tools over one MCP transport.
//
// Three transports are supported, selected by config.ServerConfig.Transport:
//
//   - stdio: JSON-RPC over the process's stdin and stdout. This is the
//     default, used when an MCP client launches helix as a subprocess.
//   - streamable-http: a single HTTP endpoint (default /mcp) plus /health.
//   - sse: the legacy Server-Sent Events transport on /sse and /message.
//
// When stdio is used, stdout belongs to the protocol; all logging goes to
// stderr.
package server
