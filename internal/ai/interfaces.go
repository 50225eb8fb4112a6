package ai

import (
	"context"

	"formpilot/internal/schema"
	"formpilot/internal/types"
)

// Prompt is one fully composed model request.
type Prompt struct {
	System string
	User   string
	// Schema constrains structured output. Nil means free text.
	Schema *schema.Schema
}

// AIProvider interface for different AI implementations
// All methods return token usage information - callers can ignore it if not needed
type AIProvider interface {
	// GenerateJSON returns the model's structured output as raw, untrusted
	// JSON. The caller is responsible for checking its shape.
	GenerateJSON(ctx context.Context, operation string, prompt Prompt) ([]byte, *types.TokenUsage, error)
	GenerateText(ctx context.Context, operation string, prompt Prompt) (string, *types.TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
