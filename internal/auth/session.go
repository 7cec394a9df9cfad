package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"helix/pkg/logging"
)

// LoginStatus is the state of the current device-code login as seen by a poller.
type LoginStatus int

const (
	// LoginNotStarted means no login is in progress.
	LoginNotStarted LoginStatus = iota

	// LoginPending means a device code was issued and the user has not finished.
	LoginPending

	// LoginSucceeded means the user signed in; the account is cached.
	LoginSucceeded

	// LoginFailed means the user declined, the code expired, or the provider failed.
	LoginFailed
)

// String returns the string representation of the login status.
func (s LoginStatus) String() string {
	switch s {
	case LoginNotStarted:
		return "not_started"
	case LoginPending:
		return "pending"
	case LoginSucceeded:
		return "succeeded"
	case LoginFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StartResult is returned by LoginManager.Start.
type StartResult struct {
	// AlreadyAuthenticated is set when a cached account refreshed silently;
	// no device code was requested.
	AlreadyAuthenticated bool
	Account              string

	AttemptID       string
	VerificationURL string
	UserCode        string
	Message         string
	ExpiresAt       time.Time
}

// PollResult is returned by LoginManager.Poll.
type PollResult struct {
	Status    LoginStatus
	AttemptID string
	Account   string
	Err       error
}

// LogoutResult is returned by LoginManager.Logout.
type LogoutResult struct {
	Removed  int
	Accounts []string
}

// pendingLogin is an issued device code whose completion runs in the background.
// result and err are written once, before done is closed.
type pendingLogin struct {
	id     string
	code   DeviceCode
	done   chan struct{}
	result AuthResult
	err    error
}

// cacheClearer purges the persisted identity cache.
type cacheClearer interface {
	Clear()
}

// LoginManager runs device-code logins that span several independent tool
// calls. One instance is created per process and shared by reference.
//
// The mutex guards only the pending reference. Device-code issuance and
// completion happen outside it.
type LoginManager struct {
	identity IdentityClient
	scopes   []string
	cache    cacheClearer
	onLogout []func()

	mu      sync.Mutex
	pending *pendingLogin
}

// LoginOption configures a LoginManager.
type LoginOption func(*LoginManager)

// WithCacheClearer sets the store purged on logout.
func WithCacheClearer(c cacheClearer) LoginOption {
	return func(m *LoginManager) {
		m.cache = c
	}
}

// WithLogoutHook registers fn to run after logout, for example to drop
// memoized tokens.
func WithLogoutHook(fn func()) LoginOption {
	return func(m *LoginManager) {
		m.onLogout = append(m.onLogout, fn)
	}
}

// NewLoginManager creates a login manager requesting scopes from identity.
func NewLoginManager(identity IdentityClient, scopes []string, opts ...LoginOption) (*LoginManager, error) {
	if identity == nil {
		return nil, errNoIdentityClient
	}
	m := &LoginManager{
		identity: identity,
		scopes:   append([]string(nil), scopes...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start begins a device-code login, or reports that a cached account is
// still usable. It returns as soon as the provider has issued the code.
// A new Start replaces any pending attempt; the old attempt keeps running
// in the background but its outcome is never reported.
func (m *LoginManager) Start(ctx context.Context) (StartResult, error) {
	accounts, err := m.identity.Accounts(ctx)
	if err != nil {
		logging.WarnErr("Login", err, "Could not list cached accounts, starting a new sign-in")
	}
	if len(accounts) > 0 {
		res := m.identity.AcquireSilent(ctx, m.scopes, accounts[0])
		if res.Outcome == SilentFresh {
			return StartResult{AlreadyAuthenticated: true, Account: accounts[0].Username}, nil
		}
		logging.Info("Login", "Cached account %s needs interactive sign-in (silent refresh %s)",
			accounts[0].Username, res.Outcome)
	}

	// The flow outlives the request that started it.
	flowCtx := context.WithoutCancel(ctx)

	flow, err := m.identity.StartDeviceCode(flowCtx, m.scopes)
	if err != nil {
		return StartResult{}, &TokenAcquisitionError{Strategy: KindInteractive, Err: err}
	}

	p := &pendingLogin{
		id:   uuid.NewString(),
		code: flow.Code(),
		done: make(chan struct{}),
	}

	m.mu.Lock()
	previous := m.pending
	m.pending = p
	m.mu.Unlock()

	if previous != nil {
		logging.Info("Login", "Login attempt %s superseded by %s", previous.id, p.id)
	}
	logging.Info("Login", "Login attempt %s waiting for user verification", p.id)

	go func() {
		result, err := flow.Wait(flowCtx)
		p.result, p.err = result, err
		close(p.done)

		if err != nil {
			logging.WarnErr("Login", err, "Login attempt %s failed", p.id)
			return
		}
		// SECURITY AUDIT: interactive sign-in completed
		slog.Info("SECURITY_AUDIT: interactive sign-in completed",
			"event", "login_succeeded",
			"attempt", p.id,
			"account", result.Account.Username,
		)
	}()

	return StartResult{
		AttemptID:       p.id,
		VerificationURL: p.code.VerificationURL,
		UserCode:        p.code.UserCode,
		Message:         p.code.Message,
		ExpiresAt:       p.code.ExpiresAt,
	}, nil
}

// Poll reports the state of the current attempt without blocking. A terminal
// state is reported once; the attempt is then cleared and later polls see
// LoginNotStarted.
func (m *LoginManager) Poll() PollResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.pending
	if p == nil {
		return PollResult{Status: LoginNotStarted}
	}

	select {
	case <-p.done:
	default:
		return PollResult{Status: LoginPending, AttemptID: p.id}
	}

	m.pending = nil
	return p.terminalResult()
}

// terminalResult reports a finished attempt. p.done must be closed.
func (p *pendingLogin) terminalResult() PollResult {
	if p.err != nil {
		return PollResult{Status: LoginFailed, AttemptID: p.id, Err: p.err}
	}
	return PollResult{Status: LoginSucceeded, AttemptID: p.id, Account: p.result.Account.Username}
}

// Wait blocks until the current attempt is terminal or ctx is done, then
// reports that attempt. The attempt is consumed unless a later Start has
// already replaced it. It is used by the CLI, never by tools.
func (m *LoginManager) Wait(ctx context.Context) (PollResult, error) {
	m.mu.Lock()
	p := m.pending
	m.mu.Unlock()

	if p == nil {
		return PollResult{Status: LoginNotStarted}, nil
	}

	select {
	case <-p.done:
		m.mu.Lock()
		if m.pending == p {
			m.pending = nil
		}
		m.mu.Unlock()
		return p.terminalResult(), nil
	case <-ctx.Done():
		return PollResult{Status: LoginPending, AttemptID: p.id}, ctx.Err()
	}
}

// Logout abandons any pending attempt, removes every cached account and
// purges the persisted cache. Failures are logged; logout always completes.
func (m *LoginManager) Logout(ctx context.Context) LogoutResult {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()

	var result LogoutResult

	accounts, err := m.identity.Accounts(ctx)
	if err != nil {
		logging.WarnErr("Login", err, "Could not list cached accounts during logout")
	}
	for _, account := range accounts {
		if err := m.identity.RemoveAccount(ctx, account); err != nil {
			logging.WarnErr("Login", err, "Failed to remove cached account %s", account.Username)
			continue
		}
		result.Removed++
		result.Accounts = append(result.Accounts, account.Username)

		// SECURITY AUDIT: account removed from cache
		slog.Info("SECURITY_AUDIT: cached account removed",
			"event", "account_removed",
			"account", account.Username,
		)
	}

	if m.cache != nil {
		m.cache.Clear()
	}
	for _, fn := range m.onLogout {
		fn()
	}
	return result
}
