package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear cached tokens",
		Long: `Removes every cached Microsoft 365 account and deletes the persisted
token cache. A running server notices the change and stops using the
removed account.`,
		Args: cobra.NoArgs,
		RunE: runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.ErrOrStderr()

	svc, _, err := loadAuth(cmd)
	if err != nil {
		return err
	}
	if svc.Login == nil {
		fmt.Fprintf(out, "Nothing to log out: the %s strategy does not cache user accounts.\n", svc.Strategy.Kind())
		return nil
	}

	res := svc.Login.Logout(commandContext(cmd))
	for _, account := range res.Accounts {
		fmt.Fprintf(out, "Removed account: %s\n", account)
	}
	fmt.Fprintln(out, "Logged out. Token cache cleared.")
	return nil
}
