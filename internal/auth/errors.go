package auth

import (
	"errors"
	"fmt"
)

// LoginHint is appended to errors the user resolves by signing in.
const LoginHint = "Run 'helix login' (or call the 'login' tool) to authenticate."

// AuthConfigurationError indicates that no usable credential inputs were
// provided, or that a selected strategy is missing required fields.
type AuthConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *AuthConfigurationError) Error() string {
	return fmt.Sprintf("authentication is not configured: %s. "+
		"Set HELIX_ACCESS_TOKEN, set HELIX_CLIENT_ID with HELIX_CLIENT_SECRET and HELIX_TENANT_ID, "+
		"or set HELIX_CLIENT_ID and run 'helix login'", e.Reason)
}

// NoCachedAccountError indicates the interactive strategy has no signed-in account.
type NoCachedAccountError struct{}

// Error implements the error interface.
func (e *NoCachedAccountError) Error() string {
	return "No cached account found. " + LoginHint
}

// ReauthenticationRequiredError indicates the cached refresh material was
// missing, expired or rejected by the identity provider.
type ReauthenticationRequiredError struct {
	Account string
	Err     error
}

// Error implements the error interface.
func (e *ReauthenticationRequiredError) Error() string {
	who := "the cached account"
	if e.Account != "" {
		who = e.Account
	}
	return fmt.Sprintf("The sign-in for %s has expired or was revoked. %s", who, LoginHint)
}

// Unwrap returns the underlying provider error.
func (e *ReauthenticationRequiredError) Unwrap() error {
	return e.Err
}

// TokenAcquisitionError wraps a transient or provider-side token failure.
// It is surfaced to the caller and never retried internally.
type TokenAcquisitionError struct {
	Strategy StrategyKind
	Err      error
}

// Error implements the error interface.
func (e *TokenAcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s token: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *TokenAcquisitionError) Unwrap() error {
	return e.Err
}

// IsLoginRequired reports whether err is resolved by signing in again.
func IsLoginRequired(err error) bool {
	var noAccount *NoCachedAccountError
	var reauth *ReauthenticationRequiredError
	return errors.As(err, &noAccount) || errors.As(err, &reauth)
}

// IsUserActionable reports whether err carries a remedial action for the user.
func IsUserActionable(err error) bool {
	var cfgErr *AuthConfigurationError
	return IsLoginRequired(err) || errors.As(err, &cfgErr)
}
