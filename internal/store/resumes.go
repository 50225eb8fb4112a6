package store

import (
	"context"
	"fmt"

	"formpilot/internal/types"
)

const resumeColumns = `id, user_id, resume_name, file_id, resume_url, created_at`

func scanResume(row interface{ Scan(dest ...any) error }) (*types.Resume, error) {
	var r types.Resume
	if err := row.Scan(&r.ID, &r.UserID, &r.ResumeName, &r.FileID, &r.ResumeURL, &r.CreatedAt); err != nil {
		return nil, noRows(err)
	}
	return &r, nil
}

// CreateResume stores a resume row.
func (s *Store) CreateResume(ctx context.Context, r types.Resume) (*types.Resume, error) {
	row := s.db.QueryRow(ctx, `
INSERT INTO resumes (user_id, resume_name, file_id, resume_url)
VALUES ($1, $2, $3, $4)
RETURNING `+resumeColumns, r.UserID, r.ResumeName, r.FileID, r.ResumeURL)
	created, err := scanResume(row)
	if err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return created, nil
}

// ResumeByFileID returns the resume only if userID owns it.
func (s *Store) ResumeByFileID(ctx context.Context, userID int64, fileID string) (*types.Resume, error) {
	return scanResume(s.db.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE file_id = $1 AND user_id = $2`, fileID, userID))
}

// ListResumes returns the user's resumes, newest first.
func (s *Store) ListResumes(ctx context.Context, userID int64) ([]types.Resume, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	res := []types.Resume{}
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

// DeleteResume removes the user's resume row.
func (s *Store) DeleteResume(ctx context.Context, userID int64, fileID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM resumes WHERE file_id = $1 AND user_id = $2`, fileID, userID)
	if err != nil {
		return fmt.Errorf("delete resume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
