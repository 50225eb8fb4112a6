// Package common holds the read, run and write plumbing shared by the
// file-driven CLI commands.
package common

import (
	"context"
	"io"
	"time"

	"formpilot/internal/errors"
	"formpilot/internal/types"
)

// Job is one model-backed command: decode the source, run the operation,
// write the result.
type Job[In, Out any] struct {
	Name   string
	Source Source
	Output Output
	Decode func([]byte) (In, error)
	// Fields adds log attributes describing the decoded input.
	Fields func(In) []any
	Run    func(context.Context, In) (Out, *types.TokenUsage, error)
}

// Execute runs the job. stdout receives the result when no output file is
// set.
func (j Job[In, Out]) Execute(ctx context.Context, logger *errors.Logger, stdout io.Writer) error {
	raw, err := j.Source.Read(logger)
	if err != nil {
		return err
	}
	in, err := j.Decode(raw)
	if err != nil {
		return err
	}

	start := []any{"source", j.Source.Name(), "output_format", j.Output.Format}
	if j.Fields != nil {
		start = append(start, j.Fields(in)...)
	}
	logger.Info("Starting "+j.Name, start...)

	began := time.Now()
	out, usage, err := j.Run(ctx, in)
	if err != nil {
		return err
	}

	done := []any{"duration_ms", time.Since(began).Milliseconds()}
	if usage != nil {
		done = append(done,
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
			"total_tokens", usage.TotalTokens)
	}
	logger.Info("Finished "+j.Name, done...)

	if err := j.Output.Write(out, stdout); err != nil {
		return err
	}
	if j.Output.File != "" {
		logger.Info("Output written", "file", j.Output.File, "format", j.Output.Format)
	}
	return nil
}
