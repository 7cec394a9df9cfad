package auth

import (
	"context"
	"time"
)

// Token is an access token with its expiry. The value is never logged.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token is usable at now with buffer to spare.
func (t Token) ValidAt(now time.Time, buffer time.Duration) bool {
	return t.Value != "" && now.Add(buffer).Before(t.ExpiresAt)
}

// Account is a signed-in user known to the identity client's cache.
type Account struct {
	HomeAccountID  string
	Environment    string
	Realm          string
	LocalAccountID string
	AuthorityType  string
	Username       string
}

// DeviceCode holds the instructions shown to the user.
type DeviceCode struct {
	UserCode        string
	VerificationURL string
	Message         string
	ExpiresAt       time.Time
}

// AuthResult is the outcome of a completed interactive sign-in.
type AuthResult struct {
	Account Account
	Token   Token
}

// DeviceCodeFlow is an issued device code whose completion is still pending.
type DeviceCodeFlow interface {
	// Code returns the verification instructions.
	Code() DeviceCode
	// Wait polls the identity provider until the user finishes, declines,
	// or the code expires.
	Wait(ctx context.Context) (AuthResult, error)
}

// IdentityClient is the public-client identity provider used by the
// interactive strategy. Implementations persist their cache through the
// token store on every change.
type IdentityClient interface {
	// StartDeviceCode blocks until the provider has issued a device code.
	StartDeviceCode(ctx context.Context, scopes []string) (DeviceCodeFlow, error)
	// AcquireSilent returns a cached or refreshed token without user interaction.
	AcquireSilent(ctx context.Context, scopes []string, account Account) SilentResult
	// Accounts lists cached accounts.
	Accounts(ctx context.Context) ([]Account, error)
	// RemoveAccount drops an account and its tokens from the cache.
	RemoveAccount(ctx context.Context, account Account) error
}

// Clock provides the current time. Tests substitute a controllable clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
