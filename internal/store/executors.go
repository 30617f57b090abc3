package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/sqlite"
	"github.com/fergusfinn/claude-host/internal/domain"
)

func (s *Store) initExecutorSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS executor_records (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		labels TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'offline',
		last_seen TIMESTAMP,
		version TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_executor_records_owner ON executor_records(owner_user_id);

	CREATE TABLE IF NOT EXISTS executor_keys (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL,
		key_prefix TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP,
		last_used TIMESTAMP,
		revoked INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_executor_keys_owner ON executor_keys(owner_user_id);
	CREATE INDEX IF NOT EXISTS idx_executor_keys_hash ON executor_keys(key_hash);
	`)
	return err
}

// UpsertExecutorRecord persists (or overwrites) the last-known metadata for
// an executor, called from the registry's change callback on register and
// disconnect.
func (s *Store) UpsertExecutorRecord(ctx context.Context, rec *domain.ExecutorRecord) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO executor_records (id, owner_user_id, name, labels, status, last_seen, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_user_id = excluded.owner_user_id,
			name = excluded.name,
			labels = excluded.labels,
			status = excluded.status,
			last_seen = excluded.last_seen,
			version = excluded.version
	`), rec.ID, rec.OwnerUserID, rec.Name, strings.Join(rec.Labels, ","), string(rec.Status), rec.LastSeen, rec.Version)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "upserting executor record", err)
	}
	return nil
}

// ListExecutorsByOwner returns every executor record owned by ownerUserID.
func (s *Store) ListExecutorsByOwner(ctx context.Context, ownerUserID string) ([]domain.ExecutorRecord, error) {
	type row struct {
		ID          string    `db:"id"`
		OwnerUserID string    `db:"owner_user_id"`
		Name        string    `db:"name"`
		Labels      string    `db:"labels"`
		Status      string    `db:"status"`
		LastSeen    time.Time `db:"last_seen"`
		Version     string    `db:"version"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT * FROM executor_records WHERE owner_user_id = ?`), ownerUserID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "listing executor records", err)
	}
	out := make([]domain.ExecutorRecord, len(rows))
	for i, r := range rows {
		var labels []string
		if r.Labels != "" {
			labels = strings.Split(r.Labels, ",")
		}
		out[i] = domain.ExecutorRecord{
			ID: r.ID, OwnerUserID: r.OwnerUserID, Name: r.Name, Labels: labels,
			Status: domain.ExecutorStatus(r.Status), LastSeen: r.LastSeen, Version: r.Version,
		}
	}
	return out, nil
}

// CreateExecutorKey inserts a new executor credential.
func (s *Store) CreateExecutorKey(ctx context.Context, key *domain.ExecutorKey) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO executor_keys (id, owner_user_id, name, key_hash, key_prefix, created_at, expires_at, last_used, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), key.ID, key.OwnerUserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.ExpiresAt, key.LastUsed,
		sqlite.BoolToInt(key.Revoked))
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "inserting executor key", err)
	}
	return nil
}

type executorKeyRow struct {
	ID          string       `db:"id"`
	OwnerUserID string       `db:"owner_user_id"`
	Name        string       `db:"name"`
	KeyHash     string       `db:"key_hash"`
	KeyPrefix   string       `db:"key_prefix"`
	CreatedAt   time.Time    `db:"created_at"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
	LastUsed    sql.NullTime `db:"last_used"`
	Revoked     int          `db:"revoked"`
}

func (row executorKeyRow) toDomain() domain.ExecutorKey {
	k := domain.ExecutorKey{
		ID: row.ID, OwnerUserID: row.OwnerUserID, Name: row.Name,
		KeyHash: row.KeyHash, KeyPrefix: row.KeyPrefix, CreatedAt: row.CreatedAt,
		Revoked: row.Revoked != 0,
	}
	if row.ExpiresAt.Valid {
		k.ExpiresAt = &row.ExpiresAt.Time
	}
	if row.LastUsed.Valid {
		k.LastUsed = &row.LastUsed.Time
	}
	return k
}

// ListExecutorKeys returns every (including revoked) key owned by ownerUserID.
func (s *Store) ListExecutorKeys(ctx context.Context, ownerUserID string) ([]domain.ExecutorKey, error) {
	var rows []executorKeyRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT * FROM executor_keys WHERE owner_user_id = ? ORDER BY created_at`), ownerUserID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "listing executor keys", err)
	}
	out := make([]domain.ExecutorKey, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// FindExecutorKeyByHash looks up a non-revoked key by its sha256 hash, used
// by token validation (spec.md §6 "Executor token format").
func (s *Store) FindExecutorKeyByHash(ctx context.Context, hash string) (*domain.ExecutorKey, error) {
	var row executorKeyRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT * FROM executor_keys WHERE key_hash = ? AND revoked = 0`), hash)
	if err == sql.ErrNoRows {
		return nil, domain.New(domain.ErrNotFound, "executor key not found")
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "querying executor key", err)
	}
	k := row.toDomain()
	return &k, nil
}

// TouchExecutorKey updates last_used for the given key id.
func (s *Store) TouchExecutorKey(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE executor_keys SET last_used = ? WHERE id = ?`), when, id)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "touching executor key", err)
	}
	return nil
}

// RevokeExecutorKey marks a key revoked.
func (s *Store) RevokeExecutorKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE executor_keys SET revoked = 1 WHERE id = ?`), id)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "revoking executor key", err)
	}
	return nil
}
