// Package questions implements the question answering pipeline: inbound
// batch validation, answer reconciliation and persistence of the results.
package questions

import (
	"encoding/json"
	"fmt"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/schema"
	"formpilot/internal/types"

	"github.com/google/uuid"
)

// Batch is a validated inbound request. Submission is nil for the bare
// request profile.
type Batch struct {
	Questions  []types.QuestionDescriptor
	Submission *types.Submission
}

// Validator checks inbound payloads before anything leaves the process.
type Validator struct {
	profile  string
	maxBatch int
	newID    func() string
}

// NewValidator creates a validator for the given request profile. maxBatch
// of zero means unlimited.
func NewValidator(profile string, maxBatch int) *Validator {
	return &Validator{profile: profile, maxBatch: maxBatch, newID: uuid.NewString}
}

// Parse validates body and returns the batch with every question carrying an
// id. All violations are reported together.
func (v *Validator) Parse(body []byte) (*Batch, error) {
	doc, err := schema.Decode(body)
	if err != nil {
		return nil, invalidBatch([]errors.Violation{{Message: "body is not valid JSON: " + err.Error()}})
	}

	var (
		batch  Batch
		prefix string
	)
	switch v.profile {
	case config.RequestProfileBare:
		if vs := types.QuestionBatchSchema.Check(doc, schema.Strict); len(vs) > 0 {
			return nil, invalidBatch(vs)
		}
		if err := json.Unmarshal(body, &batch.Questions); err != nil {
			return nil, invalidBatch([]errors.Violation{{Message: err.Error()}})
		}
	default:
		if vs := types.QuestionEnvelopeSchema.Check(doc, schema.Tolerant); len(vs) > 0 {
			return nil, invalidBatch(vs)
		}
		var env types.QuestionEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, invalidBatch([]errors.Violation{{Message: err.Error()}})
		}
		if vs := schema.Struct(env, ""); len(vs) > 0 {
			return nil, invalidBatch(vs)
		}
		batch.Questions = env.Questions
		batch.Submission = &types.Submission{
			UserID:        env.UserID,
			ApplicationID: env.ApplicationID,
			Platform:      env.Platform,
		}
		prefix = "questions"
	}

	if vs := v.checkQuestions(batch.Questions, prefix); len(vs) > 0 {
		return nil, invalidBatch(vs)
	}

	for i := range batch.Questions {
		if batch.Questions[i].ID == "" {
			batch.Questions[i].ID = v.newID()
		}
	}
	return &batch, nil
}

// checkQuestions applies the per-question rules and the batch-wide
// uniqueness rules that a shape check cannot express.
func (v *Validator) checkQuestions(questions []types.QuestionDescriptor, prefix string) []errors.Violation {
	var out []errors.Violation
	report := func(path, format string, args ...any) {
		out = append(out, errors.Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if v.maxBatch > 0 && len(questions) > v.maxBatch {
		report(prefix, "must contain at most %d item(s)", v.maxBatch)
	}

	// elementIds and option inputIds share one namespace: both name the
	// control an answer targets.
	ids := make(map[string]int)
	controls := make(map[string]string)

	for i, q := range questions {
		at := fmt.Sprintf("%s[%d]", prefix, i)
		out = append(out, schema.Struct(q, at)...)

		if q.ID != "" {
			if first, dup := ids[q.ID]; dup {
				report(at+".id", "duplicates the id of %s[%d]", prefix, first)
			} else {
				ids[q.ID] = i
			}
		}

		if q.InputKind.IsChoice() {
			if len(q.Options) == 0 {
				report(at+".options", "must not be empty for %s questions", q.InputKind)
			}
		} else {
			if q.ElementID == "" {
				report(at+".elementId", "is required for %s questions", q.InputKind)
			}
			if len(q.Options) > 0 {
				report(at+".options", "are only allowed for radio and select questions")
			}
		}

		if q.ElementID != "" {
			elemAt := at + ".elementId"
			if first, dup := controls[q.ElementID]; dup {
				report(elemAt, "duplicates the control id of %s", first)
			} else {
				controls[q.ElementID] = elemAt
			}
		}

		for j, opt := range q.Options {
			if opt.InputID == "" {
				continue
			}
			optAt := fmt.Sprintf("%s.options[%d].inputId", at, j)
			if first, dup := controls[opt.InputID]; dup {
				report(optAt, "duplicates the control id of %s", first)
			} else {
				controls[opt.InputID] = optAt
			}
		}
	}
	return out
}

func invalidBatch(vs []errors.Violation) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeInvalidBatch, "invalid question batch", nil).WithViolations(vs)
}
