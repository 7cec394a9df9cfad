package tools

import (
	"context"
	"fmt"

	"helix/internal/auth"
	"helix/pkg/logging"
)

// Auth tool names.
const (
	ToolLogin       = "login"
	ToolLoginStatus = "login-status"
	ToolLogout      = "logout"
)

// loginManager is the part of auth.LoginManager the tools use.
type loginManager interface {
	Start(ctx context.Context) (auth.StartResult, error)
	Poll() auth.PollResult
	Logout(ctx context.Context) auth.LogoutResult
}

// AuthProvider exposes interactive sign-in as tools. Without a login
// manager (no client id configured, or a non-interactive strategy) the
// tools explain why sign-in is unavailable.
type AuthProvider struct {
	manager  loginManager
	strategy auth.StrategyKind
}

// NewAuthProvider creates the auth tool provider. manager may be nil.
func NewAuthProvider(manager *auth.LoginManager, strategy auth.StrategyKind) *AuthProvider {
	p := &AuthProvider{strategy: strategy}
	if manager != nil {
		p.manager = manager
	}
	return p
}

// GetTools implements ToolProvider.
func (p *AuthProvider) GetTools() []ToolMetadata {
	return []ToolMetadata{
		{
			Name: ToolLogin,
			Description: "Start Microsoft 365 authentication. Returns a URL and code for the user to open in their browser. " +
				"After the user completes sign-in, call 'login-status' to confirm.",
			Annotations: Session(),
		},
		{
			Name:        ToolLoginStatus,
			Description: "Check if the user has completed the Microsoft 365 sign-in started by 'login'.",
			Annotations: Annotations{ReadOnly: true, LocalOnly: true},
		},
		{
			Name:        ToolLogout,
			Description: "Sign out of Microsoft 365 and clear cached tokens.",
			Annotations: Session(),
		},
	}
}

// ExecuteTool implements ToolProvider.
func (p *AuthProvider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	switch toolName {
	case ToolLogin:
		return p.handleLogin(ctx)
	case ToolLoginStatus:
		return p.handleLoginStatus()
	case ToolLogout:
		return p.handleLogout(ctx)
	default:
		return nil, fmt.Errorf("unknown auth tool: %s", toolName)
	}
}

func (p *AuthProvider) unavailable() *CallToolResult {
	if p.strategy != auth.KindInteractive {
		return errorResult(fmt.Sprintf("Interactive sign-in is not used: helix is configured with the %s strategy. "+
			"Remove HELIX_ACCESS_TOKEN or HELIX_CLIENT_SECRET to sign in as a user.", p.strategy))
	}
	return errorResult("Interactive sign-in requires HELIX_CLIENT_ID to be set.")
}

func (p *AuthProvider) handleLogin(ctx context.Context) (*CallToolResult, error) {
	if p.manager == nil {
		return p.unavailable(), nil
	}

	res, err := p.manager.Start(ctx)
	if err != nil {
		logging.Error("AuthTools", err, "Failed to start device-code login")
		return errorResult(fmt.Sprintf("Authentication failed: %v", err)), nil
	}

	if res.AlreadyAuthenticated {
		return textResult(fmt.Sprintf("Already authenticated as %s. Use the 'logout' tool first to switch accounts.", res.Account)), nil
	}

	return textResult(fmt.Sprintf("Tell the user to open %s and enter code: %s\n\n"+
		"Once they complete sign-in, call the 'login-status' tool to confirm authentication.",
		res.VerificationURL, res.UserCode)), nil
}

func (p *AuthProvider) handleLoginStatus() (*CallToolResult, error) {
	if p.manager == nil {
		return textResult("No login in progress. Call 'login' first."), nil
	}

	poll := p.manager.Poll()
	switch poll.Status {
	case auth.LoginPending:
		return textResult("Still waiting for the user to complete sign-in. " +
			"Ask them to finish the browser authentication, then call 'login-status' again."), nil
	case auth.LoginFailed:
		msg := "Unknown error"
		if poll.Err != nil {
			msg = poll.Err.Error()
		}
		return errorResult(fmt.Sprintf("Authentication failed: %s", msg)), nil
	case auth.LoginSucceeded:
		return textResult(fmt.Sprintf("Authenticated as %s. Token cached — Microsoft 365 tools are now available.", poll.Account)), nil
	default:
		return textResult("No login in progress. Call 'login' first."), nil
	}
}

func (p *AuthProvider) handleLogout(ctx context.Context) (*CallToolResult, error) {
	if p.manager == nil {
		return textResult("No accounts were cached. Already logged out."), nil
	}

	res := p.manager.Logout(ctx)
	if res.Removed > 0 {
		return textResult(fmt.Sprintf("Logged out. Removed %d cached account(s).", res.Removed)), nil
	}
	return textResult("No accounts were cached. Already logged out."), nil
}
