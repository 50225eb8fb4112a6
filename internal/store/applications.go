package store

import (
	"context"
	"fmt"

	"formpilot/internal/types"
)

const applicationColumns = `id, user_id, title, employer, job_desc, application_url, status, extra, created_at, updated_at`

func scanApplication(row interface{ Scan(dest ...any) error }) (*types.Application, error) {
	var (
		a      types.Application
		status string
		extra  []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Employer, &a.JobDesc, &a.ApplicationURL,
		&status, &extra, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, noRows(err)
	}
	a.Status = types.ApplicationStatus(status)
	a.Extra = extra
	return &a, nil
}

// CreateApplication inserts an application in the STARTED state.
func (s *Store) CreateApplication(ctx context.Context, a types.Application) (*types.Application, error) {
	var extra []byte
	if len(a.Extra) > 0 {
		extra = a.Extra
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO applications (user_id, title, employer, job_desc, application_url, status, extra)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+applicationColumns,
		a.UserID, a.Title, a.Employer, a.JobDesc, a.ApplicationURL, string(types.ApplicationStarted), extra)
	created, err := scanApplication(row)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return created, nil
}

// UpdateApplicationStatus changes the status of an application owned by
// userID. ErrNotFound covers both a missing row and a foreign owner.
func (s *Store) UpdateApplicationStatus(ctx context.Context, id, userID int64, status types.ApplicationStatus) (*types.Application, error) {
	row := s.db.QueryRow(ctx, `
UPDATE applications SET status = $3, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING `+applicationColumns, id, userID, string(status))
	return scanApplication(row)
}
