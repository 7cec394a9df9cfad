package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"helix/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Microsoft 365",
		Long: `Sign in to Microsoft 365 with the device-code flow.

helix prints a URL and a code. Open the URL in any browser, enter the code
and complete the sign-in; helix waits and caches the resulting tokens so the
MCP server can use them.

Requires HELIX_CLIENT_ID (and optionally HELIX_TENANT_ID). If an account is
already cached and its tokens can still be refreshed, nothing happens.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := cmd.ErrOrStderr()

	svc, _, err := loadAuth(cmd)
	if err != nil {
		return err
	}
	if err := requireInteractive(svc, "helix login"); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	res, err := svc.Login.Start(ctx)
	if err != nil {
		return err
	}
	if res.AlreadyAuthenticated {
		fmt.Fprintf(out, "Already authenticated as %s.\n", text.Bold.Sprint(res.Account))
		fmt.Fprintln(out, "Run 'helix logout' first to switch accounts.")
		return nil
	}

	fmt.Fprintf(out, "To sign in, open %s and enter the code %s\n\n",
		text.FgCyan.Sprint(res.VerificationURL), text.Bold.Sprint(res.UserCode))

	s := newSpinner(out, "Waiting for you to complete sign-in in the browser...")
	s.Start()
	poll, err := svc.Login.Wait(ctx)
	s.Stop()
	if err != nil {
		return fmt.Errorf("sign-in was interrupted: %w", err)
	}

	switch poll.Status {
	case auth.LoginSucceeded:
		fmt.Fprintf(out, "%s %s\n", text.FgGreen.Sprint("Authenticated as:"), poll.Account)
		fmt.Fprintln(out, "Token cached. You can now start the MCP server.")
		return nil
	case auth.LoginFailed:
		return &auth.TokenAcquisitionError{Strategy: auth.KindInteractive, Err: poll.Err}
	default:
		return fmt.Errorf("sign-in ended in unexpected state %s", poll.Status)
	}
}
