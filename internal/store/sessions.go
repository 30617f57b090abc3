package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/sqlite"
	"github.com/fergusfinn/claude-host/internal/domain"
)

func (s *Store) initSessionSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		name TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL DEFAULT '',
		executor_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		command TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		parent_name TEXT,
		created_at TIMESTAMP NOT NULL,
		last_activity TIMESTAMP NOT NULL,
		job_prompt TEXT,
		job_max_iterations INTEGER,
		needs_input INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_executor ON sessions(executor_id);
	`)
	return err
}

type sessionRow struct {
	Name             string         `db:"name"`
	OwnerUserID      string         `db:"owner_user_id"`
	ExecutorID       string         `db:"executor_id"`
	Mode             string         `db:"mode"`
	Command          string         `db:"command"`
	Description      string         `db:"description"`
	ParentName       sql.NullString `db:"parent_name"`
	CreatedAt        time.Time      `db:"created_at"`
	LastActivity     time.Time      `db:"last_activity"`
	JobPrompt        sql.NullString `db:"job_prompt"`
	JobMaxIterations sql.NullInt64  `db:"job_max_iterations"`
	NeedsInput       int            `db:"needs_input"`
}

func (row sessionRow) toDomain() domain.Session {
	sess := domain.Session{
		Name:         row.Name,
		OwnerUserID:  row.OwnerUserID,
		ExecutorID:   row.ExecutorID,
		Mode:         domain.Mode(row.Mode),
		Command:      row.Command,
		Description:  row.Description,
		CreatedAt:    row.CreatedAt,
		LastActivity: row.LastActivity,
		NeedsInput:   row.NeedsInput != 0,
	}
	if row.ParentName.Valid {
		v := row.ParentName.String
		sess.ParentName = &v
	}
	if row.JobPrompt.Valid {
		v := row.JobPrompt.String
		sess.JobPrompt = &v
	}
	if row.JobMaxIterations.Valid {
		v := int(row.JobMaxIterations.Int64)
		sess.JobMaxIterations = &v
	}
	return sess
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO sessions (name, owner_user_id, executor_id, mode, command, description,
			parent_name, created_at, last_activity, job_prompt, job_max_iterations, needs_input)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), sess.Name, sess.OwnerUserID, sess.ExecutorID, string(sess.Mode), sess.Command, sess.Description,
		sess.ParentName, sess.CreatedAt, sess.LastActivity, sess.JobPrompt, sess.JobMaxIterations,
		sqlite.BoolToInt(sess.NeedsInput))
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "inserting session", err)
	}
	return nil
}

// GetSession looks up a session by name.
func (s *Store) GetSession(ctx context.Context, name string) (*domain.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM sessions WHERE name = ?`), name)
	if err == sql.ErrNoRows {
		return nil, domain.New(domain.ErrNotFound, "session not found: "+name)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "querying session", err)
	}
	sess := row.toDomain()
	return &sess, nil
}

// ListSessionsByOwner returns every session owned by ownerUserID.
func (s *Store) ListSessionsByOwner(ctx context.Context, ownerUserID string) ([]domain.Session, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT * FROM sessions WHERE owner_user_id = ? ORDER BY created_at`), ownerUserID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "listing sessions", err)
	}
	out := make([]domain.Session, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// ListAllSessions returns every session, regardless of owner (used by the
// abandon-threshold sweep and orphan adoption).
func (s *Store) ListAllSessions(ctx context.Context) ([]domain.Session, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM sessions`)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "listing all sessions", err)
	}
	out := make([]domain.Session, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// UpdateSessionActivity bumps last_activity and the needs_input flag.
func (s *Store) UpdateSessionActivity(ctx context.Context, name string, lastActivity time.Time, needsInput bool) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE sessions SET last_activity = ?, needs_input = ? WHERE name = ?`),
		lastActivity, sqlite.BoolToInt(needsInput), name)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "updating session activity", err)
	}
	return nil
}

// UpdateSessionOwner reassigns a session row's owner (used by
// adoptUnownedResources).
func (s *Store) UpdateSessionOwner(ctx context.Context, name, ownerUserID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE sessions SET owner_user_id = ? WHERE name = ?`), ownerUserID, name)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "updating session owner", err)
	}
	return nil
}

// DeleteSession removes a session row by name.
func (s *Store) DeleteSession(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE name = ?`), name)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "deleting session", err)
	}
	return nil
}
