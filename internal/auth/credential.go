package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"helix/internal/config"
	"helix/pkg/logging"
)

const (
	// StaticTokenLifetime is the artificial lifetime given to a static token.
	StaticTokenLifetime = time.Hour

	// tokenExpiryBuffer is subtracted from expiry when reusing a memoized token.
	tokenExpiryBuffer = 60 * time.Second

	// silentRefreshTimeout bounds a shared silent refresh, which no longer
	// follows any single caller's context.
	silentRefreshTimeout = 30 * time.Second
)

// TokenFetchFunc returns an access token for scopes. Every strategy exposes
// this same signature.
type TokenFetchFunc func(ctx context.Context, scopes []string) (Token, error)

// Credential turns a resolved Strategy into tokens. It implements
// azcore.TokenCredential so it can back the Graph SDK directly.
type Credential struct {
	strategy Strategy
	scopes   []string
	clock    Clock

	identity IdentityClient
	app      azcore.TokenCredential

	group singleflight.Group

	mu   sync.Mutex
	memo map[string]Token
}

var _ azcore.TokenCredential = (*Credential)(nil)

// CredentialOption configures a Credential.
type CredentialOption func(*Credential)

// WithIdentityClient sets the public client used by the interactive strategy.
func WithIdentityClient(c IdentityClient) CredentialOption {
	return func(cr *Credential) {
		cr.identity = c
	}
}

// WithAppCredential replaces the client-secret credential built from the strategy.
func WithAppCredential(c azcore.TokenCredential) CredentialOption {
	return func(cr *Credential) {
		cr.app = c
	}
}

// WithClock sets the time source.
func WithClock(c Clock) CredentialOption {
	return func(cr *Credential) {
		cr.clock = c
	}
}

// NewCredential builds the token source for strategy.
func NewCredential(strategy Strategy, opts ...CredentialOption) (*Credential, error) {
	if strategy == nil {
		return nil, &AuthConfigurationError{Reason: "no credential strategy was resolved"}
	}

	c := &Credential{
		strategy: strategy,
		clock:    realClock{},
		memo:     make(map[string]Token),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch s := strategy.(type) {
	case StaticStrategy:
		c.scopes = []string{config.Cloud(config.CloudGlobal).DefaultScope()}
	case ClientSecretStrategy:
		c.scopes = []string{config.Cloud(s.Cloud).DefaultScope()}
		if c.app == nil {
			app, err := azidentity.NewClientSecretCredential(s.TenantID, s.ClientID, s.Secret,
				&azidentity.ClientSecretCredentialOptions{
					ClientOptions: azcore.ClientOptions{Cloud: azureCloud(s.Cloud)},
				})
			if err != nil {
				return nil, &AuthConfigurationError{Reason: fmt.Sprintf("invalid client secret credential: %v", err)}
			}
			c.app = app
		}
	case InteractiveStrategy:
		c.scopes = config.Cloud(s.Cloud).DelegatedScopes()
		if c.identity == nil {
			return nil, fmt.Errorf("interactive strategy requires an identity client")
		}
	}

	return c, nil
}

// ResolveCredential resolves the strategy for creds and builds its Credential.
func ResolveCredential(creds config.Credentials, opts ...CredentialOption) (*Credential, error) {
	strategy, err := ResolveStrategy(creds)
	if err != nil {
		return nil, err
	}
	return NewCredential(strategy, opts...)
}

func azureCloud(t config.CloudType) cloud.Configuration {
	if t == config.CloudChina {
		return cloud.AzureChina
	}
	return cloud.AzurePublic
}

// Strategy returns the resolved strategy.
func (c *Credential) Strategy() Strategy {
	return c.strategy
}

// Scopes returns the scopes requested when callers pass none.
func (c *Credential) Scopes() []string {
	return append([]string(nil), c.scopes...)
}

// Fetch returns a token for scopes (or the default scopes when empty).
func (c *Credential) Fetch(ctx context.Context, scopes []string) (Token, error) {
	if len(scopes) == 0 {
		scopes = c.scopes
	}

	switch s := c.strategy.(type) {
	case StaticStrategy:
		return Token{Value: s.Token, ExpiresAt: c.clock.Now().Add(StaticTokenLifetime)}, nil

	case ClientSecretStrategy:
		tok, err := c.app.GetToken(ctx, policy.TokenRequestOptions{Scopes: scopes})
		if err != nil {
			return Token{}, &TokenAcquisitionError{Strategy: KindClientSecret, Err: err}
		}
		return Token{Value: tok.Token, ExpiresAt: tok.ExpiresOn}, nil

	case InteractiveStrategy:
		return c.fetchInteractive(ctx, scopes)

	default:
		return Token{}, &AuthConfigurationError{Reason: "unsupported credential strategy"}
	}
}

// FetchFunc exposes Fetch as a TokenFetchFunc.
func (c *Credential) FetchFunc() TokenFetchFunc {
	return c.Fetch
}

func (c *Credential) fetchInteractive(ctx context.Context, scopes []string) (Token, error) {
	key := strings.Join(scopes, " ")

	c.mu.Lock()
	if tok, ok := c.memo[key]; ok && tok.ValidAt(c.clock.Now(), tokenExpiryBuffer) {
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	// Concurrent Graph calls after expiry share one silent refresh. It runs
	// detached so a caller that goes away does not fail the others.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), silentRefreshTimeout)
		defer cancel()

		accounts, err := c.identity.Accounts(ctx)
		if err != nil {
			return Token{}, &TokenAcquisitionError{Strategy: KindInteractive, Err: err}
		}
		if len(accounts) == 0 {
			return Token{}, &NoCachedAccountError{}
		}
		account := accounts[0]

		res := c.identity.AcquireSilent(ctx, scopes, account)
		switch {
		case res.Outcome == SilentFresh:
			c.mu.Lock()
			c.memo[key] = res.Token
			c.mu.Unlock()
			return res.Token, nil
		case res.NeedsInteraction():
			logging.Info("Credential", "Silent refresh for %s returned %s", account.Username, res.Outcome)
			return Token{}, &ReauthenticationRequiredError{Account: account.Username, Err: res.Err}
		default:
			return Token{}, &TokenAcquisitionError{Strategy: KindInteractive, Err: res.Err}
		}
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, &TokenAcquisitionError{Strategy: KindInteractive, Err: ctx.Err()}
	}
}

// Invalidate forgets memoized tokens. It is called on logout and when the
// persisted cache changes underneath the process.
func (c *Credential) Invalidate() {
	c.mu.Lock()
	c.memo = make(map[string]Token)
	c.mu.Unlock()
}

// GetToken implements azcore.TokenCredential.
func (c *Credential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.Fetch(ctx, opts.Scopes)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{Token: tok.Value, ExpiresOn: tok.ExpiresAt}, nil
}

// TokenSource adapts the credential to oauth2 for plain HTTP clients.
func (c *Credential) TokenSource(ctx context.Context, scopes ...string) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, cred: c, scopes: scopes}
}

type tokenSource struct {
	ctx    context.Context
	cred   *Credential
	scopes []string
}

// Token implements oauth2.TokenSource.
func (ts *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.cred.Fetch(ts.ctx, ts.scopes)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresAt,
	}, nil
}

// errNoIdentityClient is returned by login operations when interactive
// sign-in is not available.
var errNoIdentityClient = errors.New("interactive sign-in requires HELIX_CLIENT_ID")
