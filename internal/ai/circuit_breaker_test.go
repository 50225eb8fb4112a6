package ai

import (
	stderrors "errors"
	"testing"
	"time"

	"formpilot/internal/config"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func breakerConfig(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash-lite",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
}

func TestCircuitBreakerDisabledPassesThrough(t *testing.T) {
	cb := NewAICircuitBreaker("answer", breakerConfig(false), nil)
	require.Nil(t, cb)

	calls := 0
	resp, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		calls++
		return &genai.GenerateContentResponse{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 1, calls)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, false, cb.GetStats()["enabled"])
}

func TestCircuitBreakerOpensAndFailsFast(t *testing.T) {
	cb := NewAICircuitBreaker("answer", breakerConfig(true), nil)
	require.NotNil(t, cb)

	boom := stderrors.New("upstream unavailable")
	calls := 0
	fail := func() (*genai.GenerateContentResponse, error) {
		calls++
		return nil, boom
	}

	for range 2 {
		_, err := cb.Execute(fail)
		assert.ErrorIs(t, err, boom)
	}
	assert.False(t, cb.IsHealthy())

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls, "open breaker must not call upstream")

	stats := cb.GetStats()
	assert.Equal(t, "AI-answer", stats["name"])
	assert.Equal(t, "open", stats["state"])
}

func TestBreakersAreIndependentPerOperation(t *testing.T) {
	answer := NewAICircuitBreaker("answer", breakerConfig(true), nil)
	letter := NewAICircuitBreaker("coverLetter", breakerConfig(true), nil)

	for range 2 {
		_, _ = answer.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, stderrors.New("fail")
		})
	}

	assert.False(t, answer.IsHealthy())
	assert.True(t, letter.IsHealthy())
}

func TestModelCircuitBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker("answer", breakerConfig(true), nil)
	require.NotNil(t, cb)

	for range 4 {
		_, _ = cb.ExecuteModel(func() (*genai.Model, error) {
			return nil, stderrors.New("fail")
		})
	}
	assert.True(t, cb.IsModelHealthy(), "model breaker needs five requests before tripping")
	assert.Equal(t, "AI-Model-answer", cb.GetModelStats()["name"])
}
