// Package store persists users, verification tokens, question records,
// resumes and applications in PostgreSQL.
package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"formpilot/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = stderrors.New("not found")

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store wraps database access.
type Store struct {
	db DB
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, stderrors.New("database.url is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{db: pool}, nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db DB) *Store {
	return &Store{db: db}
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id bigserial primary key,
	email text not null unique,
	created_at timestamptz not null default now()
);

CREATE TABLE IF NOT EXISTS verification_tokens (
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	token text not null unique,
	verified boolean not null default false,
	expires_at timestamptz not null,
	created_at timestamptz not null default now()
);

CREATE INDEX IF NOT EXISTS verification_tokens_user_id_idx ON verification_tokens(user_id);

CREATE TABLE IF NOT EXISTS question_records (
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	application_id text not null,
	platform text not null,
	question_id text not null,
	question_text text not null,
	input_kind text not null,
	element_id text,
	options jsonb,
	ai_answer text,
	target_element_id text,
	was_grounded boolean,
	created_at timestamptz not null default now()
);

CREATE INDEX IF NOT EXISTS question_records_application_idx ON question_records(user_id, application_id);

CREATE TABLE IF NOT EXISTS resumes (
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	resume_name text not null,
	file_id text not null unique,
	resume_url text not null,
	created_at timestamptz not null default now()
);

CREATE TABLE IF NOT EXISTS applications (
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	title text not null,
	employer text not null,
	job_desc text not null,
	application_url text not null,
	status text not null default 'STARTED',
	extra jsonb,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
`

// EnsureSchema creates every table the service needs.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return tx.Commit(ctx)
}

// noRows maps pgx.ErrNoRows to ErrNotFound.
func noRows(err error) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
