package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helix/internal/auth"
)

// IdentityClient is a scriptable auth.IdentityClient. Device-code flows it
// issues stay pending until the test completes them.
type IdentityClient struct {
	mu sync.Mutex

	accounts    []auth.Account
	accountsErr error
	startErr    error
	removeErr   map[string]error

	// silent decides AcquireSilent outcomes. Defaults to Expired.
	silent    func(scopes []string, account auth.Account) auth.SilentResult
	silentCtx func(ctx context.Context, scopes []string, account auth.Account) auth.SilentResult

	flows       []*DeviceCodeFlow
	silentCalls int
}

var _ auth.IdentityClient = (*IdentityClient)(nil)

// NewIdentityClient creates an identity client with the given cached accounts.
func NewIdentityClient(accounts ...auth.Account) *IdentityClient {
	return &IdentityClient{
		accounts:  append([]auth.Account(nil), accounts...),
		removeErr: make(map[string]error),
	}
}

// SetSilent installs the AcquireSilent behaviour.
func (c *IdentityClient) SetSilent(fn func(scopes []string, account auth.Account) auth.SilentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silent = fn
}

// SetSilentContext installs an AcquireSilent behaviour that sees the
// request context. It takes precedence over SetSilent.
func (c *IdentityClient) SetSilentContext(fn func(ctx context.Context, scopes []string, account auth.Account) auth.SilentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silentCtx = fn
}

// SetAccountsError makes Accounts fail.
func (c *IdentityClient) SetAccountsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountsErr = err
}

// SetStartError makes StartDeviceCode fail.
func (c *IdentityClient) SetStartError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startErr = err
}

// SetRemoveError makes RemoveAccount fail for username.
func (c *IdentityClient) SetRemoveError(username string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeErr[username] = err
}

// Flows returns the device-code flows issued so far, oldest first.
func (c *IdentityClient) Flows() []*DeviceCodeFlow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*DeviceCodeFlow(nil), c.flows...)
}

// SilentCalls returns how many times AcquireSilent ran.
func (c *IdentityClient) SilentCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.silentCalls
}

// StartDeviceCode issues a pending flow with a sequential user code.
func (c *IdentityClient) StartDeviceCode(ctx context.Context, scopes []string) (auth.DeviceCodeFlow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.startErr != nil {
		return nil, c.startErr
	}
	n := len(c.flows) + 1
	flow := &DeviceCodeFlow{
		client: c,
		code: auth.DeviceCode{
			UserCode:        fmt.Sprintf("CODE-%d", n),
			VerificationURL: "https://microsoft.com/devicelogin",
			Message:         fmt.Sprintf("To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code CODE-%d to authenticate.", n),
			ExpiresAt:       time.Now().Add(15 * time.Minute),
		},
		outcome: make(chan flowOutcome, 1),
	}
	c.flows = append(c.flows, flow)
	return flow, nil
}

// AcquireSilent runs the configured silent behaviour.
func (c *IdentityClient) AcquireSilent(ctx context.Context, scopes []string, account auth.Account) auth.SilentResult {
	c.mu.Lock()
	c.silentCalls++
	fn, fnCtx := c.silent, c.silentCtx
	c.mu.Unlock()

	if fnCtx != nil {
		return fnCtx(ctx, scopes, account)
	}
	if fn == nil {
		return auth.Expired(fmt.Errorf("no refresh token cached for %s", account.Username))
	}
	return fn(scopes, account)
}

// Accounts returns the cached accounts.
func (c *IdentityClient) Accounts(ctx context.Context) ([]auth.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountsErr != nil {
		return nil, c.accountsErr
	}
	return append([]auth.Account(nil), c.accounts...), nil
}

// RemoveAccount drops account from the cache.
func (c *IdentityClient) RemoveAccount(ctx context.Context, account auth.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.removeErr[account.Username]; err != nil {
		return err
	}
	kept := c.accounts[:0]
	for _, a := range c.accounts {
		if a.HomeAccountID != account.HomeAccountID {
			kept = append(kept, a)
		}
	}
	c.accounts = kept
	return nil
}

type flowOutcome struct {
	result auth.AuthResult
	err    error
}

// DeviceCodeFlow is a device-code flow completed by the test.
type DeviceCodeFlow struct {
	client  *IdentityClient
	code    auth.DeviceCode
	outcome chan flowOutcome
}

// Code returns the issued instructions.
func (f *DeviceCodeFlow) Code() auth.DeviceCode {
	return f.code
}

// Wait blocks until Succeed or Fail is called.
func (f *DeviceCodeFlow) Wait(ctx context.Context) (auth.AuthResult, error) {
	select {
	case o := <-f.outcome:
		return o.result, o.err
	case <-ctx.Done():
		return auth.AuthResult{}, ctx.Err()
	}
}

// Succeed completes the flow and caches account like a real client would.
func (f *DeviceCodeFlow) Succeed(account auth.Account, token auth.Token) {
	f.client.mu.Lock()
	f.client.accounts = append(f.client.accounts, account)
	f.client.mu.Unlock()

	f.outcome <- flowOutcome{result: auth.AuthResult{Account: account, Token: token}}
}

// Fail completes the flow with err.
func (f *DeviceCodeFlow) Fail(err error) {
	f.outcome <- flowOutcome{err: err}
}
