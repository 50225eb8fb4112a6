package questions

import (
	"strings"
	"testing"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cappedPolicy = types.LengthPolicy{Mode: config.AnswerPolicyCapped, MaxChars: 145, MaxLines: 3}

func sampleQuestions() []types.QuestionDescriptor {
	return []types.QuestionDescriptor{
		{ID: "name", QuestionText: "Full name", InputKind: types.InputText, ElementID: "el-name"},
		{ID: "relocate", QuestionText: "Willing to relocate?", InputKind: types.InputRadio, Options: []types.Option{
			{Value: "yes", Label: "Yes", InputID: "rel-yes"},
			{Value: "no", Label: "No", InputID: "rel-no"},
		}},
		{ID: "years", QuestionText: "Years of experience", InputKind: types.InputNumber, ElementID: "el-years"},
	}
}

func answerJSON(id, text, kind, target string) string {
	return `{"id":"` + id + `","questionText":"q","answerText":"` + text + `","inputKind":"` + kind +
		`","targetElementId":"` + target + `","wasGrounded":true}`
}

func batchJSON(items ...string) []byte {
	return []byte("[" + strings.Join(items, ",") + "]")
}

func answerTexts(answers []*types.AnswerRecord) []any {
	out := make([]any, len(answers))
	for i, a := range answers {
		if a != nil {
			out[i] = a.AnswerText
		}
	}
	return out
}

func TestReconcileCardinalityAndOrder(t *testing.T) {
	tests := []struct {
		name      string
		raw       []byte
		want      []any
		wantStats types.ReconcileStats
	}{
		{
			name: "exact",
			raw: batchJSON(
				answerJSON("name", "Alex", "text", "el-name"),
				answerJSON("relocate", "yes", "radio", "rel-yes"),
				answerJSON("years", "6", "number", "el-years"),
			),
			want:      []any{"Alex", "yes", "6"},
			wantStats: types.ReconcileStats{Received: 3, Matched: 3},
		},
		{
			name: "reordered",
			raw: batchJSON(
				answerJSON("years", "6", "number", "el-years"),
				answerJSON("name", "Alex", "text", "el-name"),
				answerJSON("relocate", "no", "radio", "rel-no"),
			),
			want:      []any{"Alex", "no", "6"},
			wantStats: types.ReconcileStats{Received: 3, Matched: 3},
		},
		{
			name:      "fewer",
			raw:       batchJSON(answerJSON("years", "6", "number", "el-years")),
			want:      []any{nil, nil, "6"},
			wantStats: types.ReconcileStats{Received: 1, Matched: 1},
		},
		{
			name:      "empty",
			raw:       []byte(`[]`),
			want:      []any{nil, nil, nil},
			wantStats: types.ReconcileStats{},
		},
		{
			name: "more with unknown ids",
			raw: batchJSON(
				answerJSON("name", "Alex", "text", "el-name"),
				answerJSON("ghost", "boo", "text", "el-ghost"),
				answerJSON("other", "x", "text", "el-name"),
			),
			want:      []any{"Alex", nil, nil},
			wantStats: types.ReconcileStats{Received: 3, Matched: 1, Unmatched: 2},
		},
		{
			name: "duplicates last wins",
			raw: batchJSON(
				answerJSON("name", "First", "text", "el-name"),
				answerJSON("name", "Second", "text", "el-name"),
			),
			want:      []any{"Second", nil, nil},
			wantStats: types.ReconcileStats{Received: 2, Matched: 1, Duplicates: 1},
		},
		{
			name: "later invalid duplicate suppresses",
			raw: batchJSON(
				answerJSON("relocate", "yes", "radio", "rel-yes"),
				answerJSON("relocate", "maybe", "radio", "rel-maybe"),
			),
			want:      []any{nil, nil, nil},
			wantStats: types.ReconcileStats{Received: 2, Duplicates: 1, Suppressed: 1},
		},
	}

	r := NewReconciler(cappedPolicy)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers, stats, err := r.Reconcile(sampleQuestions(), tt.raw)
			require.NoError(t, err)
			require.Len(t, answers, 3)
			assert.Equal(t, tt.want, answerTexts(answers))
			assert.Equal(t, tt.wantStats, stats)
		})
	}
}

func TestReconcileSuppressesInvalidTargets(t *testing.T) {
	r := NewReconciler(cappedPolicy)
	raw := batchJSON(
		answerJSON("name", "Alex", "text", "el-years"),
		answerJSON("relocate", "yes", "radio", "el-name"),
		answerJSON("years", "6", "number", ""),
	)

	answers, stats, err := r.Reconcile(sampleQuestions(), raw)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, nil, nil}, answerTexts(answers))
	assert.Equal(t, 3, stats.Suppressed)
}

func TestReconcileChoiceTargetsAreOptions(t *testing.T) {
	r := NewReconciler(cappedPolicy)
	answers, _, err := r.Reconcile(sampleQuestions(), batchJSON(answerJSON("relocate", "no", "radio", "rel-no")))
	require.NoError(t, err)
	require.NotNil(t, answers[1])
	assert.Equal(t, "rel-no", answers[1].TargetElementID)
}

func TestReconcileRestoresEchoFields(t *testing.T) {
	r := NewReconciler(cappedPolicy)
	raw := []byte(`[{"id":"name","questionText":"What is your name?","answerText":"Alex","inputKind":"textarea","targetElementId":"el-name","wasGrounded":false}]`)

	answers, _, err := r.Reconcile(sampleQuestions(), raw)
	require.NoError(t, err)
	require.NotNil(t, answers[0])
	assert.Equal(t, "Full name", answers[0].QuestionText)
	assert.Equal(t, types.InputText, answers[0].InputKind)
	assert.False(t, answers[0].WasGrounded)
}

func TestReconcileSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `[{"id":`},
		{name: "object", raw: answerJSON("name", "Alex", "text", "el-name")},
		{name: "input kind outside enumeration", raw: string(batchJSON(answerJSON("name", "Alex", "checkbox", "el-name")))},
		{name: "missing field", raw: `[{"id":"name","answerText":"Alex"}]`},
		{name: "extra field", raw: `[{"id":"name","questionText":"q","answerText":"a","inputKind":"text","targetElementId":"el-name","wasGrounded":true,"confidence":0.9}]`},
		{name: "wrong type", raw: `[{"id":"name","questionText":"q","answerText":5,"inputKind":"text","targetElementId":"el-name","wasGrounded":"yes"}]`},
		{name: "null entry", raw: `[null]`},
	}

	r := NewReconciler(cappedPolicy)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Reconcile(sampleQuestions(), []byte(tt.raw))
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeSchemaViolation, errors.TypeOf(err))
			assert.False(t, errors.Is(err, errors.ErrorTypeValidation))
		})
	}
}

func TestReconcileLengthPolicy(t *testing.T) {
	long := strings.Repeat("é", 150)
	questions := []types.QuestionDescriptor{{ID: "a", QuestionText: "Why?", InputKind: types.InputTextarea, ElementID: "why"}}

	t.Run("capped", func(t *testing.T) {
		r := NewReconciler(cappedPolicy)
		answers, stats, err := r.Reconcile(questions, batchJSON(answerJSON("a", long, "textarea", "why")))
		require.NoError(t, err)
		assert.Equal(t, 145, len([]rune(answers[0].AnswerText)))
		assert.Equal(t, 1, stats.Truncated)
	})

	t.Run("short", func(t *testing.T) {
		r := NewReconciler(types.LengthPolicy{Mode: config.AnswerPolicyShort, MaxLines: 3})
		answers, stats, err := r.Reconcile(questions, batchJSON(answerJSON("a", `one\ntwo\nthree\nfour`, "textarea", "why")))
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree", answers[0].AnswerText)
		assert.Equal(t, 1, stats.Truncated)
	})

	t.Run("within limits", func(t *testing.T) {
		r := NewReconciler(cappedPolicy)
		answers, stats, err := r.Reconcile(questions, batchJSON(answerJSON("a", "Because.", "textarea", "why")))
		require.NoError(t, err)
		assert.Equal(t, "Because.", answers[0].AnswerText)
		assert.Zero(t, stats.Truncated)
	})
}

func TestPairs(t *testing.T) {
	qs := sampleQuestions()
	a := &types.AnswerRecord{ID: "relocate", AnswerText: "yes"}
	pairs := Pairs(qs, []*types.AnswerRecord{nil, a, nil})

	require.Len(t, pairs, 3)
	assert.Nil(t, pairs[0].Answer)
	assert.Same(t, a, pairs[1].Answer)
	assert.Equal(t, "years", pairs[2].Question.ID)
}
