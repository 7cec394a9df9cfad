package cmd

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"helix/internal/app"
	"helix/internal/auth"
	"helix/internal/tokencache"
	helixstrings "helix/pkg/strings"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Shows which credential strategy is active, where tokens are cached,
which accounts are cached and whether their tokens can be refreshed
without signing in again.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, hc, err := loadAuth(cmd)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Setting", "Value"})

	t.AppendRow(table.Row{"Strategy", svc.Strategy.Kind()})
	t.AppendRow(table.Row{"Cloud", hc.CloudType})
	if hc.ClientID != "" {
		t.AppendRow(table.Row{"Client ID", hc.ClientID})
		t.AppendRow(table.Row{"Tenant", hc.TenantID})
	}
	t.AppendRow(table.Row{"Read-only", hc.ReadOnly})

	if svc.Store != nil {
		t.AppendSeparator()
		appendCacheRows(cmd, t, svc)
	}

	t.Render()
	return nil
}

func appendCacheRows(cmd *cobra.Command, t table.Writer, svc *app.AuthServices) {
	t.AppendRow(table.Row{"Cache backend", svc.Store.BackendName()})
	if path := svc.Store.Path(); path != "" {
		t.AppendRow(table.Row{"Cache path", path})
	} else {
		t.AppendRow(table.Row{"Cache path", tokencache.KeyringService + "/" + tokencache.KeyringAccount + " in the OS keyring"})
	}

	ctx := commandContext(cmd)
	accounts, err := svc.Identity.Accounts(ctx)
	if err != nil {
		t.AppendRow(table.Row{"Accounts", text.FgRed.Sprint("unreadable: " + helixstrings.SingleLine(err.Error(), helixstrings.DefaultErrorMaxLen))})
		return
	}
	if len(accounts) == 0 {
		t.AppendRow(table.Row{"Accounts", text.FgYellow.Sprint("none (run 'helix login')")})
		return
	}

	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Username)
	}
	t.AppendRow(table.Row{"Accounts", strings.Join(names, "\n")})

	res := svc.Identity.AcquireSilent(ctx, svc.Credential.Scopes(), accounts[0])
	t.AppendRow(table.Row{"Session", formatSilentOutcome(res)})
}

func formatSilentOutcome(res auth.SilentResult) string {
	switch res.Outcome {
	case auth.SilentFresh:
		return text.FgGreen.Sprint("valid until " + res.Token.ExpiresAt.Local().Format("2006-01-02 15:04"))
	case auth.SilentExpired, auth.SilentInvalid:
		return text.FgYellow.Sprintf("%s (run 'helix login')", res.Outcome)
	default:
		reason := "unknown error"
		if res.Err != nil {
			reason = helixstrings.SingleLine(res.Err.Error(), helixstrings.DefaultErrorMaxLen)
		}
		return text.FgRed.Sprint("refresh failed: " + reason)
	}
}
