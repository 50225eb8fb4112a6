package auth

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/store"
	"formpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*types.User
	tokens      map[string]*types.VerificationToken
	tokenLookup int
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*types.User{}, tokens: map[string]*types.VerificationToken{}}
}

func (s *fakeStore) FindOrCreateUser(_ context.Context, email string) (*types.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u, false, nil
	}
	s.nextID++
	u := &types.User{ID: s.nextID, Email: email}
	s.users[email] = u
	return u, true, nil
}

func (s *fakeStore) ActiveToken(_ context.Context, userID int64, now time.Time) (*types.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.UserID == userID && t.ExpiresAt.After(now) {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateToken(_ context.Context, userID int64, token string, expiresAt time.Time) (*types.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &types.VerificationToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	s.tokens[token] = t
	return t, nil
}

func (s *fakeStore) TokenByValue(_ context.Context, token string) (*types.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenLookup++
	if t, ok := s.tokens[token]; ok {
		return t, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) MarkTokenVerified(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return store.ErrNotFound
	}
	t.Verified = true
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendVerification(_ context.Context, to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+" "+link)
	return nil
}

func newTestService(st *fakeStore, mailer *fakeMailer) *Service {
	logger, _ := errors.New("error")
	return NewService(config.AuthConfig{JWTSecret: "secret", TokenTTL: 24 * time.Hour}, "https://api.example.com", st, mailer, logger)
}

func TestRequestVerificationNewUser(t *testing.T) {
	st, mailer := newFakeStore(), &fakeMailer{}
	svc := newTestService(st, mailer)

	res, err := svc.RequestVerification(context.Background(), "alex@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Verification email sent", res.Message)
	require.NotNil(t, res.NewUser)
	assert.True(t, *res.NewUser)
	assert.Empty(t, res.Token)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0], "alex@example.com https://api.example.com/api/auth/verify?token=")
	require.Len(t, st.tokens, 1)
}

func TestRequestVerificationReusesActiveToken(t *testing.T) {
	st, mailer := newFakeStore(), &fakeMailer{}
	svc := newTestService(st, mailer)
	ctx := context.Background()

	_, err := svc.RequestVerification(ctx, "alex@example.com")
	require.NoError(t, err)

	res, err := svc.RequestVerification(ctx, "alex@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Nil(t, res.NewUser)
	assert.Len(t, mailer.sent, 1, "no second mail for an active token")
}

func TestRequestVerificationMailFailure(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeMailer{err: stderrors.New("smtp down")})

	_, err := svc.RequestVerification(context.Background(), "alex@example.com")
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeMailFailed, appErr.Code)
}

func TestVerify(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeMailer{})
	ctx := context.Background()

	_, err := svc.Verify(ctx, "")
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	_, err = svc.Verify(ctx, "garbage")
	assert.Equal(t, errors.ErrorTypeAuth, errors.TypeOf(err))

	orphan, _, err := svc.tokens.Issue(99, "ghost@example.com")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, orphan)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, "Token not found in database", appErr.Message)

	_, err = svc.RequestVerification(ctx, "alex@example.com")
	require.NoError(t, err)
	var token string
	for k := range st.tokens {
		token = k
	}

	res, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Email verified successfully", res.Message)
	assert.True(t, st.tokens[token].Verified)
}

func TestIsVerifiedCachesPositiveResults(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeMailer{})
	ctx := context.Background()

	token, exp, err := svc.tokens.Issue(1, "a@example.com")
	require.NoError(t, err)
	_, err = st.CreateToken(ctx, 1, token, exp)
	require.NoError(t, err)

	ok, err := svc.IsVerified(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.MarkTokenVerified(ctx, token))
	for range 3 {
		ok, err = svc.IsVerified(ctx, token)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 2, st.tokenLookup, "negative result is not cached, positive is")

	ok, err = svc.IsVerified(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeMailer{})

	_, err := svc.Authenticate("")
	assert.Equal(t, errors.ErrorTypeAuth, errors.TypeOf(err))

	token, _, err := svc.tokens.Issue(5, "e@example.com")
	require.NoError(t, err)
	claims, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UserID)
}
