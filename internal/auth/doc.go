// Package auth resolves how helix obtains Microsoft Graph access tokens and
// runs the device-code sign-in used by the interactive strategy.
//
// ResolveStrategy inspects the configured credentials and picks exactly one
// strategy, in order of precedence:
//
//   - a static access token, returned verbatim
//   - a client secret with a specific tenant, for app-only tokens
//   - the account cached by a previous device-code login
//
// Credential turns the strategy into tokens and implements
// azcore.TokenCredential, so the Graph SDK can use it directly. Interactive
// tokens are memoized and concurrent refreshes are collapsed into one call.
//
// LoginManager drives device-code sign-in across separate tool calls: Start
// returns the verification URL and user code immediately, the provider is
// polled in the background, and Poll reports the outcome exactly once.
//
// Errors that a user can fix carry the remedy in their message. See
// AuthConfigurationError, NoCachedAccountError and
// ReauthenticationRequiredError; TokenAcquisitionError wraps everything else.
package auth
