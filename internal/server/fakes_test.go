package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"formpilot/internal/ai"
	"formpilot/internal/auth"
	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/profile"
	"formpilot/internal/storage"
	"formpilot/internal/store"
	"formpilot/internal/types"
)

type fakeProcessor struct {
	result *types.BatchResult
	err    error
	body   []byte
}

func (f *fakeProcessor) Process(_ context.Context, body []byte) (*types.BatchResult, error) {
	f.body = body
	return f.result, f.err
}

type fakeCoverLetters struct {
	letter string
	err    error
}

func (f *fakeCoverLetters) GenerateCoverLetter(context.Context, *profile.UserProfile, types.JobDetails, string) (*types.CoverLetterResponse, *types.TokenUsage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &types.CoverLetterResponse{CoverLetter: f.letter}, &types.TokenUsage{TotalTokens: 10}, nil
}

type fakeChoices struct {
	mode types.ChoiceMode
	ids  []string
}

func (f *fakeChoices) SelectChoices(_ context.Context, _ *profile.UserProfile, mode types.ChoiceMode, _ types.ChoiceRequest) (*types.ChoiceAnswer, *types.TokenUsage, error) {
	f.mode = mode
	return &types.ChoiceAnswer{SelectedInputIDs: f.ids}, nil, nil
}

type fakeAuth struct {
	claims   map[string]*auth.Claims
	verified map[string]bool
	email    *auth.EmailResult
}

func (f *fakeAuth) RequestVerification(context.Context, string) (*auth.EmailResult, error) {
	return f.email, nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) (*auth.VerifyResult, error) {
	if _, ok := f.claims[token]; !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeTokenNotFound, "Invalid or expired verification token", nil)
	}
	return &auth.VerifyResult{Message: "Email verified successfully", Token: token}, nil
}

func (f *fakeAuth) Authenticate(token string) (*auth.Claims, error) {
	c, ok := f.claims[token]
	if !ok {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "invalid token", nil)
	}
	return c, nil
}

func (f *fakeAuth) IsVerified(_ context.Context, token string) (bool, error) {
	return f.verified[token], nil
}

type fakeResumes struct {
	owner   int64
	deleted []string
}

func (f *fakeResumes) CreateUploadURL(_ context.Context, userID int64, fileName, contentType string) (*storage.UploadTicket, error) {
	if fileName == "" || contentType == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Missing required parameters: fileName and contentType are required", nil)
	}
	return &storage.UploadTicket{UploadURL: "https://signed.example/put", FileID: "resumes/7/1-ab.pdf"}, nil
}

func (f *fakeResumes) SignedReadURL(_ context.Context, userID int64, fileID string) (string, error) {
	if userID != f.owner {
		return "", errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "File not found or access denied", nil)
	}
	return "https://signed.example/get/" + fileID, nil
}

func (f *fakeResumes) List(_ context.Context, userID int64) ([]types.Resume, error) {
	return []types.Resume{{ID: 1, UserID: userID, ResumeName: "cv.pdf"}}, nil
}

func (f *fakeResumes) Delete(_ context.Context, userID int64, fileID string) error {
	if userID != f.owner {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "File not found or access denied", nil)
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

type fakeApplications struct {
	created types.Application
}

func (f *fakeApplications) CreateApplication(_ context.Context, a types.Application) (*types.Application, error) {
	f.created = a
	a.ID = 5
	a.Status = types.ApplicationStarted
	return &a, nil
}

func (f *fakeApplications) UpdateApplicationStatus(_ context.Context, id, userID int64, status types.ApplicationStatus) (*types.Application, error) {
	if userID != 3 {
		return nil, store.ErrNotFound
	}
	return &types.Application{ID: id, UserID: userID, Status: status}, nil
}

type fakeModel struct {
	available bool
}

func (f fakeModel) Operation() string { return ai.OperationAnswer }

func (f fakeModel) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "gemini-test", Available: f.available}
}

func (f fakeModel) CircuitBreakerStats() map[string]any {
	return map[string]any{"state": "closed"}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		App:    config.AppConfig{MaxRequestSize: 1 << 20},
		Questions: config.QuestionsConfig{
			RequestProfile: config.RequestProfileEnvelope,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, deps Dependencies) (*Server, http.Handler) {
	t.Helper()
	logger, err := errors.New("error")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(cfg, "test", deps, nil, logger)
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s, s.setupRoutes()
}

func do(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
