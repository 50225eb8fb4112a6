package formatters

import (
	"encoding/json"
	"testing"

	"formpilot/internal/profile"
	"formpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() *types.BatchResult {
	return &types.BatchResult{
		Answers: []*types.AnswerRecord{
			{ID: "q1", QuestionText: "Full name", AnswerText: "Alex Doe", InputKind: types.InputText, TargetElementID: "name", WasGrounded: true},
			{ID: "q2", QuestionText: "Relocate?", AnswerText: "Yes", InputKind: types.InputRadio, TargetElementID: "relocate-yes", WasGrounded: true},
		},
		Stats: types.ReconcileStats{Received: 3, Matched: 2, Unmatched: 1},
	}
}

func TestFormatBatch(t *testing.T) {
	r := NewFormatterRegistry()

	text, err := r.Format(sampleBatch(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "1. [q1] Full name (text)")
	assert.Contains(t, text, "Target: relocate-yes")
	assert.Contains(t, text, "Received: 3, Matched: 2, Unmatched: 1")

	md, err := r.Format(sampleBatch(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| q2 | Relocate? | radio | Yes | relocate-yes | yes |")

	raw, err := r.Format(sampleBatch(), "json")
	require.NoError(t, err)
	var decoded types.BatchResult
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Len(t, decoded.Answers, 2)
}

func TestMarkdownCellEscaping(t *testing.T) {
	assert.Equal(t, `a \| b<br>c`, cell("a | b\nc"))
}

func TestFormatCoverLetter(t *testing.T) {
	r := NewFormatterRegistry()
	letter := &types.CoverLetterResponse{CoverLetter: "Dear Acme,\n\nHello.\n\n"}

	text, err := r.Format(letter, "text")
	require.NoError(t, err)
	assert.Equal(t, "Dear Acme,\n\nHello.\n", text)

	md, err := r.Format(letter, "markdown")
	require.NoError(t, err)
	assert.Equal(t, "# Cover Letter\n\nDear Acme,\n\nHello.\n", md)
}

func TestFormatProfile(t *testing.T) {
	p := &profile.UserProfile{
		FullName: "Alex Doe", Email: "alex@example.com", CurrentTitle: "Engineer", YearsOfExperience: 6,
		Skills:     []string{"Go"},
		Experience: []profile.Experience{{Title: "Engineer", Company: "Acme", Highlights: []string{"Shipped"}}},
	}

	md, err := NewFormatterRegistry().Format(p, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Alex Doe")
	assert.Contains(t, md, "### Engineer, Acme\n- Shipped")
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewFormatterRegistry().Format(sampleBatch(), "xml")
	assert.ErrorContains(t, err, "no formatter found for format 'xml' and type 'BatchResult'")
}
