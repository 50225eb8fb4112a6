package questions

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode/utf8"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/schema"
	"formpilot/internal/types"
)

// Reconciler maps untrusted model answers back onto the questions that were
// asked.
type Reconciler struct {
	policy types.LengthPolicy
}

// NewReconciler creates a reconciler enforcing the given length policy.
func NewReconciler(policy types.LengthPolicy) *Reconciler {
	return &Reconciler{policy: policy}
}

// Reconcile checks raw against the answer batch shape and returns exactly
// one entry per question, in question order. Entries are nil where the model
// gave no usable answer.
func (r *Reconciler) Reconcile(questions []types.QuestionDescriptor, raw []byte) ([]*types.AnswerRecord, types.ReconcileStats, error) {
	var stats types.ReconcileStats

	doc, err := schema.Decode(raw)
	if err != nil {
		return nil, stats, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "model output is not valid JSON", err)
	}
	if vs := types.AnswerBatchSchema.Check(doc, schema.Strict); len(vs) > 0 {
		return nil, stats, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "model output does not match the answer schema", nil).
			WithViolations(vs)
	}

	var answers []types.AnswerRecord
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, stats, errors.NewSchemaViolationError(errors.ErrCodeSchemaViolation, "model output does not match the answer schema", err)
	}
	stats.Received = len(answers)

	asked := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		asked[q.ID] = struct{}{}
	}

	// Last occurrence of an id wins.
	latest := make(map[string]types.AnswerRecord, len(answers))
	for _, a := range answers {
		if _, ok := asked[a.ID]; !ok {
			stats.Unmatched++
			continue
		}
		if _, seen := latest[a.ID]; seen {
			stats.Duplicates++
		}
		latest[a.ID] = a
	}

	out := make([]*types.AnswerRecord, len(questions))
	for i, q := range questions {
		a, ok := latest[q.ID]
		if !ok {
			continue
		}
		if !validTarget(q, a.TargetElementID) {
			stats.Suppressed++
			continue
		}

		a.ID = q.ID
		a.QuestionText = q.QuestionText
		a.InputKind = q.InputKind
		if !q.InputKind.IsChoice() {
			var cut bool
			a.AnswerText, cut = r.applyLength(a.AnswerText)
			if cut {
				stats.Truncated++
			}
		}

		out[i] = &a
		stats.Matched++
	}
	return out, stats, nil
}

// validTarget reports whether target names the question's own element or,
// for choice kinds, one of its options.
func validTarget(q types.QuestionDescriptor, target string) bool {
	if target == "" {
		return false
	}
	if q.InputKind.IsChoice() {
		return slices.ContainsFunc(q.Options, func(o types.Option) bool { return o.InputID == target })
	}
	return target == q.ElementID
}

// applyLength enforces the configured policy and reports whether text was cut.
func (r *Reconciler) applyLength(text string) (string, bool) {
	switch r.policy.Mode {
	case config.AnswerPolicyShort:
		if r.policy.MaxLines <= 0 {
			return text, false
		}
		lines := strings.Split(text, "\n")
		if len(lines) <= r.policy.MaxLines {
			return text, false
		}
		return strings.TrimRight(strings.Join(lines[:r.policy.MaxLines], "\n"), " \t\r\n"), true
	default:
		if r.policy.MaxChars <= 0 || utf8.RuneCountInString(text) <= r.policy.MaxChars {
			return text, false
		}
		runes := []rune(text)
		return strings.TrimRight(string(runes[:r.policy.MaxChars]), " \t\r\n"), true
	}
}

// Pairs joins questions with their reconciled answers.
func Pairs(questions []types.QuestionDescriptor, answers []*types.AnswerRecord) []types.AnswerPair {
	pairs := make([]types.AnswerPair, len(questions))
	for i, q := range questions {
		pairs[i] = types.AnswerPair{Question: q}
		if i < len(answers) {
			pairs[i].Answer = answers[i]
		}
	}
	return pairs
}
