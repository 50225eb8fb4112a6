package ai

import (
	"encoding/json"
	"testing"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeAnswerPrompt(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.FixedZone("X", 3600))
	questions := []types.QuestionDescriptor{
		{ID: "q1", QuestionText: "Years of Go?", InputKind: types.InputNumber, ElementID: "yrs"},
		{ID: "q2", QuestionText: "Relocate?", InputKind: types.InputRadio, Options: []types.Option{
			{Value: "yes", Label: "Yes", InputID: "r-yes"},
			{Value: "no", Label: "No", InputID: "r-no"},
		}},
	}
	policy := types.LengthPolicy{Mode: config.AnswerPolicyCapped, MaxChars: 145}

	prompt := ComposeAnswerPrompt(now, testProfile(), questions, policy)

	assert.Same(t, types.AnswerBatchSchema, prompt.Schema)
	assert.Contains(t, prompt.System, "145 characters")

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(prompt.User), &payload))
	assert.JSONEq(t, `"2025-03-14T08:30:00Z"`, string(payload["currentDate"]))
	assert.JSONEq(t, `""`, string(payload["userPrompt"]))
	assert.Contains(t, string(payload["userProfile"]), "Alex Rivera")
	assert.Contains(t, string(payload["questions"]), `"inputId":"r-no"`)
}

func TestComposeAnswerPromptIsDeterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	qs := []types.QuestionDescriptor{{ID: "a", QuestionText: "Name?", InputKind: types.InputText, ElementID: "n"}}
	policy := types.LengthPolicy{Mode: config.AnswerPolicyShort, MaxLines: 3}

	first := ComposeAnswerPrompt(now, testProfile(), qs, policy)
	second := ComposeAnswerPrompt(now, testProfile(), qs, policy)
	assert.Equal(t, first, second)
}

func TestAnswerInstructionPolicy(t *testing.T) {
	short := AnswerInstruction(types.LengthPolicy{Mode: config.AnswerPolicyShort, MaxLines: 3})
	assert.Contains(t, short, "never exceed 3 lines")
	assert.NotContains(t, short, "characters")

	capped := AnswerInstruction(types.LengthPolicy{Mode: config.AnswerPolicyCapped, MaxChars: 80})
	assert.Contains(t, capped, "80 characters")
}

func TestComposeCoverLetterPrompt(t *testing.T) {
	job := types.JobDetails{
		Title:        "Backend Engineer",
		Company:      "Acme",
		Description:  "Build APIs",
		Requirements: []string{"Go", "SQL"},
	}

	prompt := ComposeCoverLetterPrompt(testProfile(), job, "  mention remote work  ")

	assert.Nil(t, prompt.Schema)
	assert.Contains(t, prompt.User, "Job title: Backend Engineer")
	assert.Contains(t, prompt.User, "- SQL")
	assert.Contains(t, prompt.User, "mention remote work\n")

	withoutNotes := ComposeCoverLetterPrompt(testProfile(), job, "")
	assert.NotContains(t, withoutNotes.User, "Additional notes")
}

func TestComposeChoicePrompt(t *testing.T) {
	req := types.ChoiceRequest{
		JobDetails: types.ChoiceJob{JobTitle: "SRE", CompanyName: "Acme", Desc: "On-call"},
		HTML:       `<input type="checkbox" id="c1">`,
	}

	radio := ComposeChoicePrompt(testProfile(), types.ChoiceRadio, req)
	assert.Contains(t, radio.System, "exactly one")
	assert.Same(t, types.ChoiceAnswerSchema, radio.Schema)

	checkbox := ComposeChoicePrompt(testProfile(), types.ChoiceCheckbox, req)
	assert.Contains(t, checkbox.System, "every input that applies")
	assert.Contains(t, checkbox.User, `id="c1"`)
}
