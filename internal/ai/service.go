package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/profile"
	"formpilot/internal/schema"
	"formpilot/internal/types"
)

// Operation names used for tracing, metrics and breaker naming.
const (
	OperationAnswer      = "answer"
	OperationCoverLetter = "coverLetter"
	OperationChoice      = "choice"
)

// Service runs the model calls of one operation type.
type Service struct {
	Provider  AIProvider // Exported for access from server package
	operation string
	config    *config.OperationAIConfig
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, repairJSON bool, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"repair_json", repairJSON)

	var provider AIProvider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, repairJSON, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return NewServiceWithProvider(provider, cfg, operationType, logger), nil
}

// NewServiceWithProvider wraps an existing provider.
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) *Service {
	return &Service{
		Provider:  provider,
		operation: operationType,
		config:    cfg,
		logger:    logger,
	}
}

// Operation returns the operation this service runs.
func (s *Service) Operation() string {
	return s.operation
}

// GenerateAnswers sends a composed answering prompt and returns the raw
// structured output. Shape checks belong to the caller.
func (s *Service) GenerateAnswers(ctx context.Context, prompt Prompt) ([]byte, *types.TokenUsage, error) {
	start := time.Now()
	raw, usage, err := s.Provider.GenerateJSON(ctx, s.operation, prompt)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("Answers generated", "operation", s.operation, "duration", time.Since(start), "bytes", len(raw))
	return raw, usage, nil
}

// GenerateCoverLetter writes a cover letter for the given job.
func (s *Service) GenerateCoverLetter(ctx context.Context, p *profile.UserProfile, job types.JobDetails, userInput string) (*types.CoverLetterResponse, *types.TokenUsage, error) {
	text, usage, err := s.Provider.GenerateText(ctx, s.operation, ComposeCoverLetterPrompt(p, job, userInput))
	if err != nil {
		return nil, nil, err
	}
	return &types.CoverLetterResponse{CoverLetter: text}, usage, nil
}

// SelectChoices picks radio or checkbox inputs from a raw HTML fragment.
func (s *Service) SelectChoices(ctx context.Context, p *profile.UserProfile, mode types.ChoiceMode, req types.ChoiceRequest) (*types.ChoiceAnswer, *types.TokenUsage, error) {
	raw, usage, err := s.Provider.GenerateJSON(ctx, s.operation, ComposeChoicePrompt(p, mode, req))
	if err != nil {
		return nil, nil, err
	}

	answer, err := decodeChoiceAnswer(raw, mode)
	if err != nil {
		s.logger.LogError(err, "Choice output rejected", "mode", string(mode))
		return nil, nil, err
	}
	return answer, usage, nil
}

func decodeChoiceAnswer(raw []byte, mode types.ChoiceMode) (*types.ChoiceAnswer, error) {
	v, err := schema.Decode(raw)
	if err != nil {
		return nil, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "choice output is not valid JSON", err)
	}
	if vs := types.ChoiceAnswerSchema.Check(v, schema.Strict); len(vs) > 0 {
		return nil, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "choice output does not match schema", nil).
			WithViolations(vs)
	}

	var answer types.ChoiceAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "choice output does not match schema", err)
	}

	switch {
	case len(answer.SelectedInputIDs) == 0:
		return nil, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "choice output selected nothing", nil)
	case mode == types.ChoiceRadio && len(answer.SelectedInputIDs) != 1:
		return nil, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation,
			fmt.Sprintf("radio output must select exactly one input, got %d", len(answer.SelectedInputIDs)), nil)
	}
	return &answer, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// CircuitBreakerStats returns the provider's breaker state.
func (s *Service) CircuitBreakerStats() map[string]any {
	return s.Provider.GetCircuitBreakerStats()
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.Provider.Close()
}
