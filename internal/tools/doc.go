// Package tools defines the MCP tools helix exposes.
//
// Tools are grouped into providers, one per area of Microsoft 365: sign-in,
// mail, calendar and SharePoint. Each provider describes its tools with
// ToolMetadata and executes them by name. BuildServerTools turns the
// providers into mcp-go server tools, applying the read-only and
// enabled-tools filters.
//
// Tool failures are returned as results with IsError set so the calling
// model can read them. Graph errors and auth errors share one format,
// see graph.FormatError.
package tools
