package cli

import (
	"context"

	"formpilot/internal/config"
	"formpilot/internal/errors"

	"github.com/spf13/cobra"
)

// app is what every subcommand runs with.
type app struct {
	cfg    *config.Config
	logger *errors.Logger
}

type appKey struct{}

var rootCmd = &cobra.Command{
	Use:   "formpilot",
	Short: "AI answers for job application forms",
	Long: `Formpilot answers the questions of job application forms from a single
applicant profile. It runs as an HTTP API for the browser extension and can
answer question files or write cover letters from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, answerCmd, coverLetterCmd, migrateCmd, profileCmd, versionCmd)
}

// Execute runs the command line with cfg and logger available to every
// subcommand.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return rootCmd.ExecuteContext(context.WithValue(ctx, appKey{}, app{cfg: cfg, logger: logger}))
}

func appOf(cmd *cobra.Command) app {
	a, ok := cmd.Context().Value(appKey{}).(app)
	if !ok {
		panic("cli: command run outside Execute")
	}
	return a
}

func configOf(cmd *cobra.Command) *config.Config { return appOf(cmd).cfg }

func loggerOf(cmd *cobra.Command) *errors.Logger { return appOf(cmd).logger }
