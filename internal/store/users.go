package store

import (
	"context"
	"fmt"
	"time"

	"formpilot/internal/types"
)

// UserExists reports whether a user row with id exists.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return exists, nil
}

// FindOrCreateUser returns the user with email, creating it when missing.
// created reports whether this call inserted the row.
func (s *Store) FindOrCreateUser(ctx context.Context, email string) (user *types.User, created bool, err error) {
	var u types.User
	err = s.db.QueryRow(ctx, `
INSERT INTO users (email) VALUES ($1)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING id, email, created_at, (xmax = 0) AS inserted`, email).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("find or create user: %w", err)
	}
	return &u, created, nil
}

const tokenColumns = `id, user_id, token, verified, expires_at, created_at`

func scanToken(row interface{ Scan(dest ...any) error }) (*types.VerificationToken, error) {
	var t types.VerificationToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.Verified, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, noRows(err)
	}
	return &t, nil
}

// ActiveToken returns the newest token for userID that expires after now.
func (s *Store) ActiveToken(ctx context.Context, userID int64, now time.Time) (*types.VerificationToken, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+tokenColumns+`
FROM verification_tokens
WHERE user_id = $1 AND expires_at > $2
ORDER BY created_at DESC
LIMIT 1`, userID, now)
	return scanToken(row)
}

// CreateToken stores a new, unverified token.
func (s *Store) CreateToken(ctx context.Context, userID int64, token string, expiresAt time.Time) (*types.VerificationToken, error) {
	row := s.db.QueryRow(ctx, `
INSERT INTO verification_tokens (user_id, token, expires_at)
VALUES ($1, $2, $3)
RETURNING `+tokenColumns, userID, token, expiresAt)
	t, err := scanToken(row)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return t, nil
}

// TokenByValue looks a token up by its signed value.
func (s *Store) TokenByValue(ctx context.Context, token string) (*types.VerificationToken, error) {
	return scanToken(s.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM verification_tokens WHERE token = $1`, token))
}

// MarkTokenVerified flags a token as verified.
func (s *Store) MarkTokenVerified(ctx context.Context, token string) error {
	tag, err := s.db.Exec(ctx, `UPDATE verification_tokens SET verified = true WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("mark token verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
