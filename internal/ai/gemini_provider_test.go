package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"formpilot/internal/errors"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestParseJSONOutput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		repair  bool
		want    string
		wantErr bool
	}{
		{name: "plain array", text: `[{"id":"a"}]`, want: `[{"id":"a"}]`},
		{name: "fenced", text: "```json\n[1,2]\n```", want: `[1,2]`},
		{name: "empty", text: "   ", wantErr: true},
		{name: "prose", text: "Sure! Here are the answers.", wantErr: true},
		{name: "trailing comma without repair", text: `[1,2,]`, wantErr: true},
		{name: "trailing comma with repair", text: `[1,2,]`, repair: true, want: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseJSONOutput(tt.text, tt.repair)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := errors.As(err)
				require.True(t, ok)
				assert.Equal(t, errors.ErrCodeMalformedOutput, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestClassifyGenerationError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus any
		wantOpen   bool
	}{
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), wantCode: errors.ErrCodeGenerationTimeout},
		{name: "api error", err: &googleapi.Error{Code: 503, Message: "unavailable"}, wantCode: errors.ErrCodeGenerationFailed, wantStatus: 503},
		{name: "breaker open", err: gobreaker.ErrOpenState, wantCode: errors.ErrCodeGenerationFailed, wantOpen: true},
		{name: "other", err: stderrors.New("boom"), wantCode: errors.ErrCodeGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifyGenerationError(OperationAnswer, tt.err)
			assert.Equal(t, errors.ErrorTypeGeneration, appErr.Type)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, OperationAnswer, appErr.Context["operation"])
			assert.ErrorIs(t, appErr, tt.err)
			if tt.wantStatus != nil {
				assert.Equal(t, tt.wantStatus, appErr.Context["status_code"])
			}
			if tt.wantOpen {
				assert.Equal(t, true, appErr.Context["circuit_open"])
			}
		})
	}
}

func TestExtractTokenUsage(t *testing.T) {
	assert.Nil(t, extractTokenUsage(nil))
	assert.Nil(t, extractTokenUsage(&genai.GenerateContentResponse{}))

	usage := extractTokenUsage(&genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 40,
			TotalTokenCount:      140,
		},
	})
	require.NotNil(t, usage)
	assert.Equal(t, int32(100), usage.PromptTokens)
	assert.Equal(t, int32(40), usage.CompletionTokens)
	assert.Equal(t, int32(140), usage.TotalTokens)
}
