// Package auth implements passwordless email verification with signed
// tokens.
package auth

import (
	"context"
	stderrors "errors"
	"net/url"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/store"
	"formpilot/internal/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is the persistence the auth flow needs.
type Store interface {
	FindOrCreateUser(ctx context.Context, email string) (*types.User, bool, error)
	ActiveToken(ctx context.Context, userID int64, now time.Time) (*types.VerificationToken, error)
	CreateToken(ctx context.Context, userID int64, token string, expiresAt time.Time) (*types.VerificationToken, error)
	TokenByValue(ctx context.Context, token string) (*types.VerificationToken, error)
	MarkTokenVerified(ctx context.Context, token string) error
}

// Mailer delivers verification links.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// EmailRequest is the body of POST /api/auth/email.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// EmailResult is returned by RequestVerification. Token is set when an
// unexpired token already exists; otherwise a mail was sent.
type EmailResult struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	NewUser *bool  `json:"newUser,omitempty"`
}

// VerifyResult is returned by Verify.
type VerifyResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Service runs the email verification flow.
type Service struct {
	store    Store
	tokens   *TokenManager
	mailer   Mailer
	verified *expirable.LRU[string, bool]
	baseURL  string
	logger   *errors.Logger
	now      func() time.Time
}

// NewService creates the verification service.
func NewService(cfg config.AuthConfig, baseURL string, st Store, mailer Mailer, logger *errors.Logger) *Service {
	size := cfg.VerifiedCacheSize
	if size <= 0 {
		size = 1024
	}
	ttl := cfg.VerifiedCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		store:    st,
		tokens:   NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		mailer:   mailer,
		verified: expirable.NewLRU[string, bool](size, nil, ttl),
		baseURL:  baseURL,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestVerification finds or creates the user for email and either returns
// their unexpired token or issues a new one and mails a verification link.
func (s *Service) RequestVerification(ctx context.Context, email string) (*EmailResult, error) {
	user, created, err := s.store.FindOrCreateUser(ctx, email)
	if err != nil {
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to find or create user", err)
	}

	existing, err := s.store.ActiveToken(ctx, user.ID, s.now())
	switch {
	case err == nil:
		return &EmailResult{Token: existing.Token}, nil
	case !stderrors.Is(err, store.ErrNotFound):
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to look up token", err)
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidConfig, "failed to sign token", err)
	}
	if _, err := s.store.CreateToken(ctx, user.ID, signed, expiresAt); err != nil {
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to store token", err)
	}

	if err := s.mailer.SendVerification(ctx, user.Email, s.VerificationLink(signed)); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeMailFailed, "failed to send verification email", err).
			WithContext("user_id", user.ID)
	}
	s.logger.Info("Verification email sent", "user_id", user.ID, "new_user", created)

	return &EmailResult{Message: "Verification email sent", NewUser: &created}, nil
}

// VerificationLink builds the link mailed to the user.
func (s *Service) VerificationLink(token string) string {
	return s.baseURL + "/api/auth/verify?token=" + url.QueryEscape(token)
}

// Verify marks token verified.
func (s *Service) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Token is required", nil)
	}
	if _, err := s.tokens.Parse(token); err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "Invalid or expired token", err)
	}

	if err := s.store.MarkTokenVerified(ctx, token); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeTokenNotFound, "Token not found in database", nil)
		}
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to verify token", err)
	}
	s.verified.Add(token, true)

	return &VerifyResult{Message: "Email verified successfully", Token: token}, nil
}

// Authenticate parses a bearer token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "Unauthorized", nil)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidToken, "Unauthorized", err)
	}
	return claims, nil
}

// IsVerified reports whether token's row is flagged verified. Positive
// answers are cached.
func (s *Service) IsVerified(ctx context.Context, token string) (bool, error) {
	if ok, hit := s.verified.Get(token); hit && ok {
		return true, nil
	}

	row, err := s.store.TokenByValue(ctx, token)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "failed to look up token", err)
	}
	if row.Verified {
		s.verified.Add(token, true)
	}
	return row.Verified, nil
}
