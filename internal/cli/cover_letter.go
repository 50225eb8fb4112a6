package cli

import (
	"context"
	"fmt"

	"formpilot/internal/common"
	"formpilot/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [job-file]",
	Short: "Write a cover letter for a job",
	Long: `Write a cover letter grounded in the applicant profile. The job is JSON
with title, company, description and optional requirements and location,
read from the file or from stdin.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := configOf(cmd)
		if coverLetterOutput.Format == "" {
			coverLetterOutput.Format = "text"
		}
		return common.CheckFormat(coverLetterOutput.Format, cfg.App.SupportedFormats)
	},
	RunE: runCoverLetter,
}

var (
	coverLetterOutput    common.Output
	coverLetterUserInput string
)

func init() {
	coverLetterCmd.Flags().StringVarP(&coverLetterOutput.File, "output", "o", "", "Output file path (default: stdout)")
	coverLetterCmd.Flags().StringVar(&coverLetterOutput.Format, "format", "", "Output format: json, text, or markdown (default: text)")
	coverLetterCmd.Flags().StringVar(&coverLetterUserInput, "input", "", "Extra instructions for the letter")
}

func parseJobDetails(data []byte) (types.JobDetails, error) {
	return common.DecodeJSON[types.JobDetails](data, "jobDetails")
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	cfg := configOf(cmd)
	logger := loggerOf(cmd)

	p, err := loadProfile(cfg, logger)
	if err != nil {
		return err
	}
	writer, err := newCoverLetterService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer writer.Close()

	job := common.Job[types.JobDetails, *types.CoverLetterResponse]{
		Name:   "cover letter generation",
		Source: inputSource(cmd, cfg, args),
		Output: coverLetterOutput,
		Decode: parseJobDetails,
		Fields: func(j types.JobDetails) []any { return []any{"title", j.Title, "company", j.Company} },
		Run: func(ctx context.Context, j types.JobDetails) (*types.CoverLetterResponse, *types.TokenUsage, error) {
			return writer.GenerateCoverLetter(ctx, p, j, coverLetterUserInput)
		},
	}
	if err := job.Execute(cmd.Context(), logger, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write cover letter: %w", err)
	}
	return nil
}
