// Package graph builds authenticated Microsoft Graph clients and renders
// Graph responses for tool output.
//
// ClientFactory wires a credential into the Graph SDK through the kiota
// Azure authentication provider, restricted to the Graph hosts of the
// configured cloud. HTTPClient exposes the same credential as a plain
// oauth2 client for content downloads the SDK does not model.
package graph
