package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"helix/internal/app"
	"helix/internal/auth"
	"helix/internal/config"
	"helix/pkg/logging"
)

// spinnerInterval is the frame rate of progress spinners.
const spinnerInterval = 100 * time.Millisecond

// loadAuth loads configuration and builds the same token lifecycle
// components the server uses. Routine bootstrap logging is suppressed
// unless --debug is set.
func loadAuth(cmd *cobra.Command) (*app.AuthServices, *config.HelixConfig, error) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	hc, err := app.LoadConfig(app.NewConfig(debug, configPath, GetVersion()))
	if err != nil {
		return nil, nil, err
	}

	svc, err := app.InitializeAuth(*hc)
	if err != nil {
		return nil, hc, err
	}
	return svc, hc, nil
}

// requireInteractive fails when svc cannot run a user sign-in.
func requireInteractive(svc *app.AuthServices, action string) error {
	if svc.Login != nil {
		return nil
	}
	return &auth.AuthConfigurationError{
		Reason: fmt.Sprintf("%s needs a user sign-in, but helix is configured with the %s strategy", action, svc.Strategy.Kind()),
	}
}

// newSpinner returns a spinner writing to w, which should be stderr so that
// piped stdout stays clean.
func newSpinner(w io.Writer, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], spinnerInterval, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	return s
}
