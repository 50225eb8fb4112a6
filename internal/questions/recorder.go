package questions

import (
	"context"
	"encoding/json"
	"fmt"

	"formpilot/internal/errors"
	"formpilot/internal/types"
)

// RecordStore is the persistence the recorder needs.
type RecordStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	// CreateQuestionRecords inserts all records atomically and returns the
	// number written.
	CreateQuestionRecords(ctx context.Context, records []types.QuestionRecord) (int64, error)
}

// Recorder writes one durable record per answered question.
type Recorder struct {
	store  RecordStore
	logger *errors.Logger
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store RecordStore, logger *errors.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// CheckUser fails with a NotFoundError when userID has no user row.
func (r *Recorder) CheckUser(ctx context.Context, userID int64) error {
	ok, err := r.store.UserExists(ctx, userID)
	if err != nil {
		return errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to look up user", err).
			WithContext("user_id", userID)
	}
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeUserNotFound, fmt.Sprintf("User with ID %d does not exist", userID), nil)
	}
	return nil
}

// Record checks that the submitting user exists, then writes every pair in
// one atomic insert. Nothing is written when the check fails. A user deleted
// between the check and the insert surfaces as a persistence error.
func (r *Recorder) Record(ctx context.Context, sub types.Submission, pairs []types.AnswerPair) error {
	if err := r.CheckUser(ctx, sub.UserID); err != nil {
		return err
	}

	records := make([]types.QuestionRecord, 0, len(pairs))
	for _, p := range pairs {
		rec, err := newQuestionRecord(sub, p)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	n, err := r.store.CreateQuestionRecords(ctx, records)
	if err != nil {
		return errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to record answers", err).
			WithContext("user_id", sub.UserID).
			WithContext("application_id", sub.ApplicationID).
			WithContext("records", len(records))
	}

	r.logger.Debug("Question records written",
		"user_id", sub.UserID,
		"application_id", sub.ApplicationID,
		"platform", sub.Platform,
		"count", n)
	return nil
}

func newQuestionRecord(sub types.Submission, p types.AnswerPair) (types.QuestionRecord, error) {
	rec := types.QuestionRecord{
		UserID:        sub.UserID,
		ApplicationID: sub.ApplicationID,
		Platform:      sub.Platform,
		QuestionID:    p.Question.ID,
		QuestionText:  p.Question.QuestionText,
		InputKind:     p.Question.InputKind,
		ElementID:     p.Question.ElementID,
	}

	if len(p.Question.Options) > 0 {
		opts, err := json.Marshal(p.Question.Options)
		if err != nil {
			return rec, errors.NewInternalError(errors.ErrCodePersistenceFailed, "failed to encode options", err)
		}
		rec.Options = opts
	}

	if a := p.Answer; a != nil {
		rec.AIAnswer = &a.AnswerText
		rec.TargetElementID = &a.TargetElementID
		rec.WasGrounded = &a.WasGrounded
	}
	return rec, nil
}
