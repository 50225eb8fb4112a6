package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"formpilot/internal/config"
	appErrors "formpilot/internal/errors"
	"formpilot/internal/types"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// defaultModelCheckTimeout bounds GetModelInfo when the caller's context has no deadline.
const defaultModelCheckTimeout = 10 * time.Second

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	repairJSON     bool
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *appErrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, repairJSON bool, logger *appErrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		repairJSON:     repairJSON,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultModelCheckTimeout)
		defer cancel()
	}

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = "model check failed: " + err.Error()
		g.logger.Warn("Model availability check failed", "model", g.config.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// generate performs exactly one model call. Failures are terminal; the
// circuit breaker only fails fast while the model is unhealthy.
func (g *GeminiProvider) generate(ctx context.Context, operation string, prompt Prompt) (*genai.GenerateContentResponse, error) {
	ctx, span := otel.Tracer("formpilot.ai.gemini").Start(ctx, "gemini."+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("ai.prompt_length", len(prompt.User)),
		attribute.Bool("ai.structured", prompt.Schema != nil),
	)

	if g.config.Timeout != nil && *g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	genaiConfig := &genai.GenerateContentConfig{}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if prompt.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.Schema != nil {
		genaiConfig.ResponseMIMEType = "application/json"
		genaiConfig.ResponseSchema = prompt.Schema.Genai()
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt.User), genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, classifyGenerationError(operation, err)
	}

	if usage := extractTokenUsage(result); usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", int64(usage.PromptTokens)),
			attribute.Int64("ai.tokens.output", int64(usage.CompletionTokens)),
			attribute.Int64("ai.tokens.total", int64(usage.TotalTokens)),
		)
	}
	return result, nil
}

// GenerateJSON implements AIProvider. The returned bytes are valid JSON but
// otherwise unchecked.
func (g *GeminiProvider) GenerateJSON(ctx context.Context, operation string, prompt Prompt) ([]byte, *types.TokenUsage, error) {
	result, err := g.generate(ctx, operation, prompt)
	if err != nil {
		return nil, nil, err
	}

	raw, err := parseJSONOutput(result.Text(), g.repairJSON)
	if err != nil {
		g.logger.LogError(err, "Model returned unparseable output", "operation", operation)
		return nil, nil, err
	}
	return raw, extractTokenUsage(result), nil
}

// GenerateText implements AIProvider.
func (g *GeminiProvider) GenerateText(ctx context.Context, operation string, prompt Prompt) (string, *types.TokenUsage, error) {
	result, err := g.generate(ctx, operation, prompt)
	if err != nil {
		return "", nil, err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", nil, appErrors.NewGenerationError(appErrors.ErrCodeMalformedOutput, "model returned an empty response", nil).
			WithContext("operation", operation)
	}
	return text, extractTokenUsage(result), nil
}

// parseJSONOutput accepts text only if it is JSON, optionally after repair.
func parseJSONOutput(text string, repair bool) ([]byte, error) {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return nil, appErrors.NewGenerationError(appErrors.ErrCodeMalformedOutput, "model returned an empty response", nil)
	}
	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}
	if !repair {
		return nil, appErrors.NewGenerationError(appErrors.ErrCodeMalformedOutput, "model output is not valid JSON", nil)
	}

	fixed, err := jsonrepair.JSONRepair(text)
	if err != nil || !json.Valid([]byte(fixed)) {
		return nil, appErrors.NewGenerationError(appErrors.ErrCodeMalformedOutput, "model output is not valid JSON and could not be repaired", err)
	}
	return []byte(fixed), nil
}

// stripCodeFence removes a surrounding ```json fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// classifyGenerationError wraps a model call failure with enough context for
// logs. Model error text never leaves the server.
func classifyGenerationError(operation string, err error) *appErrors.AppError {
	code := appErrors.ErrCodeGenerationFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = appErrors.ErrCodeGenerationTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = appErrors.ErrCodeGenerationTimeout
	}

	appErr := appErrors.NewGenerationError(code, "model call failed", err).WithContext("operation", operation)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		appErr.WithContext("status_code", apiErr.Code)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		appErr.WithContext("circuit_open", true)
	}
	return appErr
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &types.TokenUsage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}
