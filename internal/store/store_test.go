package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"formpilot/internal/types"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, pool.ExpectationsWereMet())
		pool.Close()
	})
	return NewWithDB(pool), pool
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

var created = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func TestEnsureSchema(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectBegin()
	pool.ExpectExec(q("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectCommit()

	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestEnsureSchemaRollsBackOnError(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectBegin()
	pool.ExpectExec(q("CREATE TABLE")).WillReturnError(stderrors.New("permission denied"))
	pool.ExpectRollback()

	assert.ErrorContains(t, s.EnsureSchema(context.Background()), "create tables")
}

func TestUserExists(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	pool.ExpectQuery(q("SELECT EXISTS")).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := s.UserExists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UserExists(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindOrCreateUser(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectQuery(q("INSERT INTO users (email)")).
		WithArgs("alex@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "created_at", "inserted"}).
			AddRow(int64(3), "alex@example.com", created, true))

	user, isNew, err := s.FindOrCreateUser(context.Background(), "alex@example.com")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, created, user.CreatedAt)
}

func tokenRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "token", "verified", "expires_at", "created_at"})
}

func TestTokens(t *testing.T) {
	s, pool := newMockStore(t)
	ctx := context.Background()
	now := created
	expires := now.Add(24 * time.Hour)

	pool.ExpectQuery(q("FROM verification_tokens")).
		WithArgs(int64(3), now).
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectQuery(q("INSERT INTO verification_tokens")).
		WithArgs(int64(3), "jwt-value", expires).
		WillReturnRows(tokenRows().AddRow(int64(1), int64(3), "jwt-value", false, expires, now))
	pool.ExpectQuery(q("WHERE token = $1")).
		WithArgs("jwt-value").
		WillReturnRows(tokenRows().AddRow(int64(1), int64(3), "jwt-value", true, expires, now))
	pool.ExpectExec(q("UPDATE verification_tokens SET verified = true")).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := s.ActiveToken(ctx, 3, now)
	assert.ErrorIs(t, err, ErrNotFound)

	tok, err := s.CreateToken(ctx, 3, "jwt-value", expires)
	require.NoError(t, err)
	assert.False(t, tok.Verified)
	assert.Equal(t, expires, tok.ExpiresAt)

	tok, err = s.TokenByValue(ctx, "jwt-value")
	require.NoError(t, err)
	assert.True(t, tok.Verified)

	assert.ErrorIs(t, s.MarkTokenVerified(ctx, "missing"), ErrNotFound)
}

func sampleRecords() []types.QuestionRecord {
	answer, target, grounded := "yes", "relocate-yes", true
	return []types.QuestionRecord{
		{
			UserID: 1, ApplicationID: "app", Platform: "lever", QuestionID: "q1",
			QuestionText: "Relocate?", InputKind: types.InputRadio,
			Options:  json.RawMessage(`[{"value":"yes","label":"Yes","inputId":"relocate-yes"}]`),
			AIAnswer: &answer, TargetElementID: &target, WasGrounded: &grounded,
		},
		{
			UserID: 1, ApplicationID: "app", Platform: "lever", QuestionID: "q2",
			QuestionText: "Name", InputKind: types.InputText, ElementID: "name",
		},
	}
}

func TestCreateQuestionRecords(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectBegin()
	pool.ExpectCopyFrom(pgx.Identifier{"question_records"}, questionRecordColumns).WillReturnResult(2)
	pool.ExpectCommit()

	n, err := s.CreateQuestionRecords(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCreateQuestionRecordsIsAllOrNothing(t *testing.T) {
	s, pool := newMockStore(t)

	pool.ExpectBegin()
	pool.ExpectCopyFrom(pgx.Identifier{"question_records"}, questionRecordColumns).
		WillReturnError(stderrors.New("violates foreign key constraint"))
	pool.ExpectRollback()

	_, err := s.CreateQuestionRecords(context.Background(), sampleRecords())
	assert.ErrorContains(t, err, "insert question records")
}

func TestCreateQuestionRecordsEmpty(t *testing.T) {
	s, _ := newMockStore(t)
	n, err := s.CreateQuestionRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func resumeRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "resume_name", "file_id", "resume_url", "created_at"})
}

func TestResumes(t *testing.T) {
	s, pool := newMockStore(t)
	ctx := context.Background()
	fileID := "resumes/3/1700000000000-ab12.pdf"
	url := "https://storage.googleapis.com/bucket/" + fileID

	pool.ExpectQuery(q("INSERT INTO resumes")).
		WithArgs(int64(3), "cv.pdf", fileID, url).
		WillReturnRows(resumeRows().AddRow(int64(1), int64(3), "cv.pdf", fileID, url, created))
	pool.ExpectQuery(q("FROM resumes WHERE file_id = $1 AND user_id = $2")).
		WithArgs(fileID, int64(4)).
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectQuery(q("ORDER BY created_at DESC")).
		WithArgs(int64(3)).
		WillReturnRows(resumeRows().
			AddRow(int64(2), int64(3), "new.pdf", "b", "u2", created.Add(time.Hour)).
			AddRow(int64(1), int64(3), "cv.pdf", fileID, url, created))
	pool.ExpectExec(q("DELETE FROM resumes")).
		WithArgs(fileID, int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	r, err := s.CreateResume(ctx, types.Resume{UserID: 3, ResumeName: "cv.pdf", FileID: fileID, ResumeURL: url})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)

	_, err = s.ResumeByFileID(ctx, 4, fileID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListResumes(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new.pdf", list[0].ResumeName)

	require.NoError(t, s.DeleteResume(ctx, 3, fileID))
}

func applicationRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "title", "employer", "job_desc", "application_url", "status", "extra", "created_at", "updated_at"})
}

func TestApplications(t *testing.T) {
	s, pool := newMockStore(t)
	ctx := context.Background()
	extra := json.RawMessage(`{"source":"indeed"}`)

	pool.ExpectQuery(q("INSERT INTO applications")).
		WithArgs(int64(3), "Engineer", "Acme", "Build", "https://acme.example/jobs/1", "STARTED", []byte(extra)).
		WillReturnRows(applicationRows().AddRow(int64(5), int64(3), "Engineer", "Acme", "Build",
			"https://acme.example/jobs/1", "STARTED", []byte(extra), created, created))
	pool.ExpectQuery(q("UPDATE applications SET status = $3")).
		WithArgs(int64(5), int64(3), "COMPLETED").
		WillReturnRows(applicationRows().AddRow(int64(5), int64(3), "Engineer", "Acme", "Build",
			"https://acme.example/jobs/1", "COMPLETED", []byte(nil), created, created.Add(time.Minute)))
	pool.ExpectQuery(q("UPDATE applications")).
		WithArgs(int64(5), int64(9), "ERROR").
		WillReturnError(pgx.ErrNoRows)

	app, err := s.CreateApplication(ctx, types.Application{
		UserID: 3, Title: "Engineer", Employer: "Acme", JobDesc: "Build",
		ApplicationURL: "https://acme.example/jobs/1", Extra: extra,
	})
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationStarted, app.Status)
	assert.JSONEq(t, `{"source":"indeed"}`, string(app.Extra))

	app, err = s.UpdateApplicationStatus(ctx, 5, 3, types.ApplicationCompleted)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationCompleted, app.Status)

	_, err = s.UpdateApplicationStatus(ctx, 5, 9, types.ApplicationError)
	assert.ErrorIs(t, err, ErrNotFound)
}
