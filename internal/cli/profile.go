package cli

import (
	"formpilot/internal/common"
	"formpilot/internal/profile"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile [profile-file]",
	Short: "Validate and print the applicant profile",
	Long: `Load the applicant profile every answer is grounded in, validate it and
print it. Without an argument the configured app.profileFile is used.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := configOf(cmd)
		if profileOutput.Format == "" {
			profileOutput.Format = "text"
		}
		return common.CheckFormat(profileOutput.Format, cfg.App.SupportedFormats)
	},
	RunE: runProfile,
}

var profileOutput common.Output

func init() {
	profileCmd.Flags().StringVarP(&profileOutput.File, "output", "o", "", "Output file path (default: stdout)")
	profileCmd.Flags().StringVar(&profileOutput.Format, "format", "", "Output format: json, text, or markdown (default: text)")
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg := configOf(cmd)
	logger := loggerOf(cmd)

	path := cfg.App.ProfileFile
	if len(args) == 1 {
		path = args[0]
	}
	p, err := profile.Load(path)
	if err != nil {
		return err
	}
	logger.Info("Profile is valid", "file", path)
	if err := profileOutput.Write(p, cmd.OutOrStdout()); err != nil {
		return err
	}
	if profileOutput.File != "" {
		logger.Info("Profile written", "file", profileOutput.File, "format", profileOutput.Format)
	}
	return nil
}
