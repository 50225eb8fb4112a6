package questions

import (
	"context"
	"time"

	"formpilot/internal/ai"
	"formpilot/internal/errors"
	"formpilot/internal/profile"
	"formpilot/internal/types"
)

// Generator produces the raw structured answers for a composed prompt.
type Generator interface {
	GenerateAnswers(ctx context.Context, prompt ai.Prompt) ([]byte, *types.TokenUsage, error)
}

// Observer receives the outcome of every pipeline run.
type Observer interface {
	BatchProcessed(ctx context.Context, size int, stats types.ReconcileStats, err error)
}

// Options configures a Pipeline.
type Options struct {
	Validator  *Validator
	Generator  Generator
	Reconciler *Reconciler
	// Recorder may be nil, in which case nothing is persisted.
	Recorder *Recorder
	Profile  *profile.UserProfile
	Policy   types.LengthPolicy
	Timeout  time.Duration
	Observer Observer
	Logger   *errors.Logger
}

// Pipeline runs validate, compose, generate, reconcile and record for one
// batch.
type Pipeline struct {
	opts Options
	now  func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{opts: opts, now: time.Now}
}

// Process validates body and runs the batch.
func (p *Pipeline) Process(ctx context.Context, body []byte) (*types.BatchResult, error) {
	batch, err := p.opts.Validator.Parse(body)
	if err != nil {
		p.observe(ctx, 0, types.ReconcileStats{}, err)
		return nil, err
	}
	return p.Run(ctx, batch)
}

// Run answers a validated batch. It keeps going when ctx is cancelled so a
// dropped client never leaves a half-finished model call or write; the run
// is bounded by the configured timeout instead.
func (p *Pipeline) Run(ctx context.Context, batch *Batch) (*types.BatchResult, error) {
	ctx = context.WithoutCancel(ctx)
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	result, err := p.run(ctx, batch)
	var stats types.ReconcileStats
	if result != nil {
		stats = result.Stats
	}
	p.observe(ctx, len(batch.Questions), stats, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, batch *Batch) (*types.BatchResult, error) {
	logger := p.opts.Logger
	record := batch.Submission != nil && p.opts.Recorder != nil

	if record {
		if err := p.opts.Recorder.CheckUser(ctx, batch.Submission.UserID); err != nil {
			return nil, err
		}
	}

	prompt := ai.ComposeAnswerPrompt(p.now(), p.opts.Profile, batch.Questions, p.opts.Policy)
	raw, usage, err := p.opts.Generator.GenerateAnswers(ctx, prompt)
	if err != nil {
		logger.LogError(err, "Answer generation failed", "questions", len(batch.Questions))
		return nil, err
	}

	answers, stats, err := p.opts.Reconciler.Reconcile(batch.Questions, raw)
	if err != nil {
		logger.LogError(err, "Model output rejected", "questions", len(batch.Questions))
		return nil, err
	}
	if stats.Unmatched > 0 || stats.Suppressed > 0 || stats.Duplicates > 0 {
		logger.Warn("Model answers discarded during reconciliation",
			"received", stats.Received,
			"unmatched", stats.Unmatched,
			"duplicates", stats.Duplicates,
			"suppressed", stats.Suppressed)
	}

	if record {
		if err := p.opts.Recorder.Record(ctx, *batch.Submission, Pairs(batch.Questions, answers)); err != nil {
			logger.LogError(err, "Recording answers failed")
			return nil, err
		}
	}

	return &types.BatchResult{Answers: answers, Stats: stats, Usage: usage}, nil
}

func (p *Pipeline) observe(ctx context.Context, size int, stats types.ReconcileStats, err error) {
	if p.opts.Observer != nil {
		p.opts.Observer.BatchProcessed(ctx, size, stats, err)
	}
}
