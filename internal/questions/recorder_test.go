package questions

import (
	"context"
	stderrors "errors"
	"testing"

	"formpilot/internal/errors"
	"formpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesOneRowPerQuestion(t *testing.T) {
	store := newFakeStore(7)
	rec := NewRecorder(store, testLogger())
	sub := types.Submission{UserID: 7, ApplicationID: "app-9", Platform: "lever"}

	qs := sampleQuestions()
	answer := &types.AnswerRecord{ID: "relocate", AnswerText: "yes", InputKind: types.InputRadio, TargetElementID: "rel-yes", WasGrounded: true}

	err := rec.Record(context.Background(), sub, Pairs(qs, []*types.AnswerRecord{nil, answer, nil}))
	require.NoError(t, err)
	require.Len(t, store.records, 3)

	first := store.records[0]
	assert.Equal(t, "name", first.QuestionID)
	assert.Equal(t, "el-name", first.ElementID)
	assert.Nil(t, first.AIAnswer)
	assert.Nil(t, first.TargetElementID)
	assert.Nil(t, first.Options)

	second := store.records[1]
	assert.Equal(t, int64(7), second.UserID)
	assert.Equal(t, "app-9", second.ApplicationID)
	assert.Equal(t, "lever", second.Platform)
	require.NotNil(t, second.AIAnswer)
	assert.Equal(t, "yes", *second.AIAnswer)
	assert.Equal(t, "rel-yes", *second.TargetElementID)
	assert.True(t, *second.WasGrounded)
	assert.JSONEq(t, `[{"value":"yes","label":"Yes","inputId":"rel-yes"},{"value":"no","label":"No","inputId":"rel-no"}]`, string(second.Options))
}

func TestRecordUnknownUserWritesNothing(t *testing.T) {
	store := newFakeStore()
	rec := NewRecorder(store, testLogger())

	err := rec.Record(context.Background(), types.Submission{UserID: 99}, Pairs(sampleQuestions(), nil))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, "User with ID 99 does not exist", appErr.Message)
	assert.Empty(t, store.records)
}

func TestRecordStoreFailures(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		store := newFakeStore(1)
		store.lookupErr = stderrors.New("connection refused")
		err := NewRecorder(store, testLogger()).CheckUser(context.Background(), 1)
		assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))
	})

	t.Run("insert", func(t *testing.T) {
		store := newFakeStore(1)
		store.createErr = stderrors.New("foreign key violation")
		err := NewRecorder(store, testLogger()).Record(context.Background(), types.Submission{UserID: 1}, Pairs(sampleQuestions(), nil))
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodePersistenceFailed, appErr.Code)
		assert.Equal(t, 3, appErr.Context["records"])
	})
}
