package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"

	"helix/internal/config"
)

// MSALClient implements IdentityClient with an MSAL public client whose
// cache is persisted through accessor.
type MSALClient struct {
	app public.Client
}

var _ IdentityClient = (*MSALClient)(nil)

// NewMSALClient builds the public client for clientID against the tenant
// authority of the configured cloud.
func NewMSALClient(clientID, tenantID string, cloudType config.CloudType, accessor cache.ExportReplace) (*MSALClient, error) {
	if clientID == "" {
		return nil, errNoIdentityClient
	}
	authority := config.Cloud(cloudType).Authority(tenantID)

	opts := []public.Option{public.WithAuthority(authority)}
	if accessor != nil {
		opts = append(opts, public.WithCache(accessor))
	}
	app, err := public.New(clientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create public client for %s: %w", authority, err)
	}
	return &MSALClient{app: app}, nil
}

// StartDeviceCode requests a device code. The returned flow polls on Wait.
func (c *MSALClient) StartDeviceCode(ctx context.Context, scopes []string) (DeviceCodeFlow, error) {
	dc, err := c.app.AcquireTokenByDeviceCode(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return &msalDeviceCodeFlow{dc: dc}, nil
}

// AcquireSilent returns a cached token or refreshes it with the cached refresh token.
func (c *MSALClient) AcquireSilent(ctx context.Context, scopes []string, account Account) SilentResult {
	res, err := c.app.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(toMSALAccount(account)))
	if err != nil {
		return classifySilentError(err)
	}
	return Fresh(Token{Value: res.AccessToken, ExpiresAt: res.ExpiresOn})
}

// Accounts lists the accounts in the persisted cache.
func (c *MSALClient) Accounts(ctx context.Context) ([]Account, error) {
	accts, err := c.app.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(accts))
	for _, a := range accts {
		out = append(out, fromMSALAccount(a))
	}
	return out, nil
}

// RemoveAccount removes account and its tokens from the cache.
func (c *MSALClient) RemoveAccount(ctx context.Context, account Account) error {
	return c.app.RemoveAccount(ctx, toMSALAccount(account))
}

type msalDeviceCodeFlow struct {
	dc public.DeviceCode
}

func (f *msalDeviceCodeFlow) Code() DeviceCode {
	return DeviceCode{
		UserCode:        f.dc.Result.UserCode,
		VerificationURL: f.dc.Result.VerificationURL,
		Message:         f.dc.Result.Message,
		ExpiresAt:       f.dc.Result.ExpiresOn,
	}
}

func (f *msalDeviceCodeFlow) Wait(ctx context.Context) (AuthResult, error) {
	res, err := f.dc.AuthenticationResult(ctx)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		Account: fromMSALAccount(res.Account),
		Token:   Token{Value: res.AccessToken, ExpiresAt: res.ExpiresOn},
	}, nil
}

// classifySilentError maps an MSAL silent failure onto a SilentResult.
// HTTP 400/401 from the token endpoint means the refresh token was rejected
// (invalid_grant, interaction_required). Transport failures are Failed.
// Anything else means the cache holds nothing usable for the account.
func classifySilentError(err error) SilentResult {
	var callErr msalerrors.CallErr
	if errors.As(err, &callErr) {
		if callErr.Resp != nil {
			switch callErr.Resp.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return Invalid(err)
			}
		}
		return Failed(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Failed(err)
	}
	return Expired(err)
}

func toMSALAccount(a Account) public.Account {
	return public.Account{
		HomeAccountID:     a.HomeAccountID,
		Environment:       a.Environment,
		Realm:             a.Realm,
		LocalAccountID:    a.LocalAccountID,
		AuthorityType:     a.AuthorityType,
		PreferredUsername: a.Username,
	}
}

func fromMSALAccount(a public.Account) Account {
	return Account{
		HomeAccountID:  a.HomeAccountID,
		Environment:    a.Environment,
		Realm:          a.Realm,
		LocalAccountID: a.LocalAccountID,
		AuthorityType:  a.AuthorityType,
		Username:       a.PreferredUsername,
	}
}
