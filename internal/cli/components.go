package cli

import (
	"formpilot/internal/ai"
	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/observability"
	"formpilot/internal/profile"
	"formpilot/internal/questions"
	"formpilot/internal/types"
)

// lengthPolicy turns the questions config into the reconciler policy.
func lengthPolicy(cfg config.QuestionsConfig) types.LengthPolicy {
	return types.LengthPolicy{
		Mode:     cfg.AnswerPolicy,
		MaxChars: cfg.MaxAnswerChars,
		MaxLines: cfg.MaxAnswerLines,
	}
}

func loadProfile(cfg *config.Config, logger *errors.Logger) (*profile.UserProfile, error) {
	p, err := profile.Load(cfg.App.ProfileFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Applicant profile loaded", "file", cfg.App.ProfileFile, "name", p.FullName)
	return p, nil
}

// pipelineDeps are the parts a question pipeline is built from.
type pipelineDeps struct {
	profile  *profile.UserProfile
	answers  *ai.Service
	recorder *questions.Recorder
	metrics  *observability.Metrics
}

// newPipeline builds the question pipeline. requestProfile overrides the
// configured profile when set.
func newPipeline(cfg *config.Config, requestProfile string, deps pipelineDeps, logger *errors.Logger) *questions.Pipeline {
	if requestProfile == "" {
		requestProfile = cfg.Questions.RequestProfile
	}
	policy := lengthPolicy(cfg.Questions)

	var generator questions.Generator = deps.answers
	var observer questions.Observer
	if deps.metrics != nil {
		generator = deps.metrics.TrackGenerator(ai.OperationAnswer, deps.answers)
		observer = deps.metrics
	}

	return questions.NewPipeline(questions.Options{
		Validator:  questions.NewValidator(requestProfile, cfg.Questions.MaxBatchSize),
		Generator:  generator,
		Reconciler: questions.NewReconciler(policy),
		Recorder:   deps.recorder,
		Profile:    deps.profile,
		Policy:     policy,
		Timeout:    cfg.Questions.PipelineTimeout,
		Observer:   observer,
		Logger:     logger,
	})
}

func newAnswerService(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	opCfg := cfg.GetAnswerConfig()
	return ai.NewService(&opCfg, ai.OperationAnswer, cfg.AI.RepairJSON, logger)
}

func newCoverLetterService(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	opCfg := cfg.GetCoverLetterConfig()
	return ai.NewService(&opCfg, ai.OperationCoverLetter, cfg.AI.RepairJSON, logger)
}

func newChoiceService(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	opCfg := cfg.GetChoiceConfig()
	return ai.NewService(&opCfg, ai.OperationChoice, cfg.AI.RepairJSON, logger)
}
