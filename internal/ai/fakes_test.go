package ai

import (
	"context"
	"sync"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/profile"
	"formpilot/internal/types"
)

// fakeProvider records prompts and replays canned output.
type fakeProvider struct {
	mu      sync.Mutex
	prompts []Prompt
	json    []byte
	text    string
	usage   *types.TokenUsage
	err     error
}

func (f *fakeProvider) GenerateJSON(_ context.Context, _ string, prompt Prompt) ([]byte, *types.TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.json, f.usage, nil
}

func (f *fakeProvider) GenerateText(_ context.Context, _ string, prompt Prompt) (string, *types.TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, f.usage, nil
}

func (f *fakeProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake", Available: true}
}

func (f *fakeProvider) GetCircuitBreakerStats() map[string]any { return map[string]any{} }

func (f *fakeProvider) Close() error { return nil }

func testLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

func testOperationConfig() *config.OperationAIConfig {
	temp := float32(0.2)
	timeout := 5 * time.Second
	return &config.OperationAIConfig{Provider: "gemini", Model: "fake", Temperature: &temp, Timeout: &timeout}
}

func testProfile() *profile.UserProfile {
	return &profile.UserProfile{
		FullName:          "Alex Rivera",
		Email:             "alex@example.com",
		YearsOfExperience: 6,
		Location:          profile.Location{City: "Lisbon", Country: "Portugal"},
		Skills:            []string{"Go", "PostgreSQL"},
	}
}
