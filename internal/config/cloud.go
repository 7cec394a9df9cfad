package config

import (
	"fmt"
	"strings"
)

// CloudSettings describes the endpoints of one Microsoft cloud deployment.
type CloudSettings struct {
	// AuthorityHost is the login host, with a trailing slash.
	AuthorityHost string
	// GraphEndpoint is the versioned Graph base URL.
	GraphEndpoint string
	// GraphResource is the Graph resource identifier used to build scopes.
	GraphResource string
	// ValidHosts are the hosts the Graph auth provider may send tokens to.
	ValidHosts []string
}

var clouds = map[CloudType]CloudSettings{
	CloudGlobal: {
		AuthorityHost: "https://login.microsoftonline.com/",
		GraphEndpoint: "https://graph.microsoft.com/v1.0",
		GraphResource: "https://graph.microsoft.com",
		ValidHosts:    []string{"graph.microsoft.com"},
	},
	CloudChina: {
		AuthorityHost: "https://login.chinacloudapi.cn/",
		GraphEndpoint: "https://microsoftgraph.chinacloudapi.cn/v1.0",
		GraphResource: "https://microsoftgraph.chinacloudapi.cn",
		ValidHosts:    []string{"microsoftgraph.chinacloudapi.cn"},
	},
}

// delegatedPermissions are requested during interactive sign-in.
var delegatedPermissions = []string{
	"User.Read",
	"Mail.ReadWrite",
	"Mail.Send",
	"Calendars.ReadWrite",
	"Sites.ReadWrite.All",
	"Files.ReadWrite.All",
}

// ParseCloudType normalises a cloud name. Empty input maps to the global cloud.
func ParseCloudType(s string) (CloudType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global", "public", "azurepublic":
		return CloudGlobal, nil
	case "china", "azurechina":
		return CloudChina, nil
	default:
		return "", fmt.Errorf("unknown cloud type %q (expected global or china)", s)
	}
}

// Cloud returns the endpoint settings for a cloud type, defaulting to global.
func Cloud(t CloudType) CloudSettings {
	if s, ok := clouds[t]; ok {
		return s
	}
	return clouds[CloudGlobal]
}

// Authority returns the full authority URL for a tenant.
func (s CloudSettings) Authority(tenantID string) string {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	return s.AuthorityHost + tenantID
}

// DefaultScope is the app-only scope covering every permission granted to the application.
func (s CloudSettings) DefaultScope() string {
	return s.GraphResource + "/.default"
}

// DelegatedScopes are the user scopes requested by the device-code flow.
// MSAL adds openid, profile and offline_access itself.
func (s CloudSettings) DelegatedScopes() []string {
	scopes := make([]string, 0, len(delegatedPermissions))
	for _, p := range delegatedPermissions {
		scopes = append(scopes, s.GraphResource+"/"+p)
	}
	return scopes
}
