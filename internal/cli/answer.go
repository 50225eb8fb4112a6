package cli

import (
	"context"
	"fmt"

	"formpilot/internal/common"
	"formpilot/internal/config"
	"formpilot/internal/types"

	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer [questions-file]",
	Short: "Answer a question batch from a JSON file or stdin",
	Long: `Answer the questions of an application form from the applicant profile.
The input holds the same JSON body the browser extension posts to
/api/process-questions; "-" or no argument reads it from stdin. Nothing is
recorded in the database.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := configOf(cmd)
		if answerOutput.Format == "" {
			answerOutput.Format = cfg.App.DefaultFormat
		}
		switch answerRequestProfile {
		case "", config.RequestProfileBare, config.RequestProfileEnvelope:
		default:
			return fmt.Errorf("invalid request profile %q (must be 'bare' or 'envelope')", answerRequestProfile)
		}
		return common.CheckFormat(answerOutput.Format, cfg.App.SupportedFormats)
	},
	RunE: runAnswer,
}

var (
	answerOutput         common.Output
	answerRequestProfile string
)

func init() {
	answerCmd.Flags().StringVarP(&answerOutput.File, "output", "o", "", "Output file path (default: stdout)")
	answerCmd.Flags().StringVar(&answerOutput.Format, "format", "", "Output format: json, text, or markdown")
	answerCmd.Flags().StringVar(&answerRequestProfile, "request-profile", "", "Body shape: bare or envelope (default from config)")

	_ = answerCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := configOf(cmd)
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnswer(cmd *cobra.Command, args []string) error {
	cfg := configOf(cmd)
	logger := loggerOf(cmd)

	p, err := loadProfile(cfg, logger)
	if err != nil {
		return err
	}
	answers, err := newAnswerService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer answers.Close()

	pipeline := newPipeline(cfg, answerRequestProfile, pipelineDeps{profile: p, answers: answers}, logger)

	job := common.Job[[]byte, *types.BatchResult]{
		Name:   "question answering",
		Source: inputSource(cmd, cfg, args),
		Output: answerOutput,
		// The pipeline's own validator reports batch problems with
		// field paths, so the body goes through untouched.
		Decode: func(body []byte) ([]byte, error) { return body, nil },
		Fields: func(body []byte) []any { return []any{"body_bytes", len(body)} },
		Run: func(ctx context.Context, body []byte) (*types.BatchResult, *types.TokenUsage, error) {
			result, err := pipeline.Process(ctx, body)
			if err != nil {
				return nil, nil, err
			}
			return result, result.Usage, nil
		},
	}
	if err := job.Execute(cmd.Context(), logger, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to answer questions: %w", err)
	}
	return nil
}

// inputSource reads the first argument, or stdin when there is none.
func inputSource(cmd *cobra.Command, cfg *config.Config, args []string) common.Source {
	src := common.Source{Path: common.Stdin, Stdin: cmd.InOrStdin(), MaxBytes: cfg.App.MaxRequestSize}
	if len(args) == 1 {
		src.Path = args[0]
	}
	return src
}
