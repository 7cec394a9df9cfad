package auth

import (
	"strings"

	"helix/internal/config"
)

// StrategyKind identifies how tokens are acquired.
type StrategyKind int

const (
	// KindStatic returns a pre-issued access token verbatim.
	KindStatic StrategyKind = iota
	// KindClientSecret acquires app-only tokens with a client secret.
	KindClientSecret
	// KindInteractive uses the account cached by a device-code login.
	KindInteractive
)

// String returns a human-readable representation of the strategy kind.
func (k StrategyKind) String() string {
	switch k {
	case KindStatic:
		return "static-token"
	case KindClientSecret:
		return "client-secret"
	case KindInteractive:
		return "interactive"
	default:
		return "unknown"
	}
}

// Strategy is the resolved credential strategy. The concrete type is one of
// StaticStrategy, ClientSecretStrategy or InteractiveStrategy.
type Strategy interface {
	Kind() StrategyKind
	strategy()
}

// StaticStrategy always returns Token.
type StaticStrategy struct {
	Token string
}

// ClientSecretStrategy authenticates as the application itself.
type ClientSecretStrategy struct {
	TenantID string
	ClientID string
	Secret   string
	Cloud    config.CloudType
}

// InteractiveStrategy uses the account established by device-code login.
type InteractiveStrategy struct {
	TenantID string
	ClientID string
	Cloud    config.CloudType
}

func (StaticStrategy) Kind() StrategyKind       { return KindStatic }
func (ClientSecretStrategy) Kind() StrategyKind { return KindClientSecret }
func (InteractiveStrategy) Kind() StrategyKind  { return KindInteractive }

func (StaticStrategy) strategy()       {}
func (ClientSecretStrategy) strategy() {}
func (InteractiveStrategy) strategy()  {}

// multiTenantAliases cannot be used for app-only tokens.
var multiTenantAliases = map[string]bool{
	"":              true,
	"common":        true,
	"organizations": true,
	"consumers":     true,
}

// ResolveStrategy picks the credential strategy for c. The first match wins:
// a static token, then a client secret, then the interactive cached account.
func ResolveStrategy(c config.Credentials) (Strategy, error) {
	if token := strings.TrimSpace(c.AccessToken); token != "" {
		return StaticStrategy{Token: token}, nil
	}

	if c.ClientSecret != "" {
		if c.ClientID == "" {
			return nil, &AuthConfigurationError{Reason: "a client secret is set but the client id is missing"}
		}
		if multiTenantAliases[strings.ToLower(c.TenantID)] {
			return nil, &AuthConfigurationError{Reason: "a client secret requires a specific tenant id, not " + quoteTenant(c.TenantID)}
		}
		return ClientSecretStrategy{
			TenantID: c.TenantID,
			ClientID: c.ClientID,
			Secret:   c.ClientSecret,
			Cloud:    c.CloudType,
		}, nil
	}

	if c.ClientID == "" {
		return nil, &AuthConfigurationError{Reason: "no access token, client secret or client id was provided"}
	}

	tenant := c.TenantID
	if tenant == "" {
		tenant = config.DefaultTenantID
	}
	return InteractiveStrategy{
		TenantID: tenant,
		ClientID: c.ClientID,
		Cloud:    c.CloudType,
	}, nil
}

func quoteTenant(t string) string {
	if t == "" {
		return "an empty value"
	}
	return "'" + t + "'"
}
