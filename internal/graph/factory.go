package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	kiotaauth "github.com/microsoft/kiota-authentication-azure-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"golang.org/x/oauth2"

	"helix/internal/auth"
	"helix/internal/config"
	"helix/pkg/logging"
)

// tokenSourcer is implemented by credentials that can also back a plain
// oauth2 HTTP client.
type tokenSourcer interface {
	TokenSource(ctx context.Context, scopes ...string) oauth2.TokenSource
}

// ClientFactory builds Graph clients bound to one credential. Every client
// pulls a token from the credential on each request, so the factory can be
// shared for the lifetime of the process.
type ClientFactory struct {
	cloud  config.CloudSettings
	cred   azcore.TokenCredential
	scopes []string

	once   sync.Once
	client *msgraphsdk.GraphServiceClient
	err    error
}

// FactoryOption configures a ClientFactory.
type FactoryOption func(*ClientFactory)

// WithScopes overrides the scopes requested for Graph calls.
func WithScopes(scopes []string) FactoryOption {
	return func(f *ClientFactory) {
		f.scopes = append([]string(nil), scopes...)
	}
}

// WithCloudSettings overrides the endpoints, for example to point at a test server.
func WithCloudSettings(s config.CloudSettings) FactoryOption {
	return func(f *ClientFactory) {
		f.cloud = s
	}
}

// NewClientFactory creates a factory for cloudType. A nil credential is a
// configuration error: there is no way to authenticate any Graph call.
func NewClientFactory(cloudType config.CloudType, cred azcore.TokenCredential, opts ...FactoryOption) (*ClientFactory, error) {
	if cred == nil {
		return nil, &auth.AuthConfigurationError{Reason: "no credential is available for Microsoft Graph"}
	}

	f := &ClientFactory{
		cloud: config.Cloud(cloudType),
		cred:  cred,
	}
	if c, ok := cred.(*auth.Credential); ok {
		f.scopes = c.Scopes()
	}
	for _, opt := range opts {
		opt(f)
	}
	if len(f.scopes) == 0 {
		f.scopes = []string{f.cloud.DefaultScope()}
	}
	return f, nil
}

// Create returns the Graph client, building it on first use.
func (f *ClientFactory) Create() (*msgraphsdk.GraphServiceClient, error) {
	f.once.Do(func() {
		f.client, f.err = f.build()
	})
	return f.client, f.err
}

func (f *ClientFactory) build() (*msgraphsdk.GraphServiceClient, error) {
	provider, err := kiotaauth.NewAzureIdentityAuthenticationProviderWithScopesAndValidHosts(f.cred, f.scopes, f.cloud.ValidHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph authentication provider: %w", err)
	}

	adapter, err := msgraphsdk.NewGraphRequestAdapter(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph request adapter: %w", err)
	}
	adapter.SetBaseUrl(f.cloud.GraphEndpoint)

	logging.Debug("GraphFactory", "Created Graph client for %s", f.cloud.GraphEndpoint)
	return msgraphsdk.NewGraphServiceClient(adapter), nil
}

// BaseURL returns the versioned Graph endpoint clients talk to.
func (f *ClientFactory) BaseURL() string {
	return f.cloud.GraphEndpoint
}

// HTTPClient returns a plain HTTP client that authenticates with the
// factory's credential. Redirects are not followed so that the bearer token
// never reaches pre-authenticated download hosts.
func (f *ClientFactory) HTTPClient(ctx context.Context) *http.Client {
	var ts oauth2.TokenSource
	if s, ok := f.cred.(tokenSourcer); ok {
		ts = s.TokenSource(ctx, f.scopes...)
	} else {
		ts = &azcoreTokenSource{ctx: ctx, cred: f.cred, scopes: f.scopes}
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

type azcoreTokenSource struct {
	ctx    context.Context
	cred   azcore.TokenCredential
	scopes []string
}

// Token implements oauth2.TokenSource.
func (s *azcoreTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cred.GetToken(s.ctx, policy.TokenRequestOptions{Scopes: s.scopes})
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok.Token, TokenType: "Bearer", Expiry: tok.ExpiresOn}, nil
}
