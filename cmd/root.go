package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"helix/internal/auth"
	"helix/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable signed-in account is available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates token acquisition or the device-code flow failed.
	ExitCodeAuthFailed = 3
	// ExitCodeConfig indicates invalid or missing configuration.
	ExitCodeConfig = 4
)

// Flags shared by every command.
var (
	configPath string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "helix",
	Short: "Microsoft 365 MCP server",
	Long: `helix exposes Microsoft 365 mail, calendar, SharePoint and user
operations to AI assistants over the Model Context Protocol.

Sign in once with 'helix login' (or configure an access token or client
secret), then point your MCP client at 'helix serve'.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute so configuration errors can carry detail.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "helix version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(getExitCode(err))
	}
}

// printError writes err to w. Configuration errors include the offending
// file and suggestions for fixing it.
func printError(w io.Writer, err error) {
	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(w, cfgErr.DetailedError())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var noAccount *auth.NoCachedAccountError
	if errors.As(err, &noAccount) {
		return ExitCodeAuthRequired
	}

	var reauth *auth.ReauthenticationRequiredError
	if errors.As(err, &reauth) {
		return ExitCodeAuthRequired
	}

	var acquisition *auth.TokenAcquisitionError
	if errors.As(err, &acquisition) {
		return ExitCodeAuthFailed
	}

	var authConfig *auth.AuthConfigurationError
	if errors.As(err, &authConfig) {
		return ExitCodeConfig
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	return ExitCodeError
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Directory containing config.yaml (default is the user config directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
}
