package store

import (
	"context"

	"github.com/fergusfinn/claude-host/internal/domain"
)

func (s *Store) initConfigSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS config_kv (
		owner_user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner_user_id, key)
	);
	`)
	return err
}

type configRow struct {
	OwnerUserID string `db:"owner_user_id"`
	Key         string `db:"key"`
	Value       string `db:"value"`
}

// GetConfig returns every config entry for ownerUserID as a key/value map.
func (s *Store) GetConfig(ctx context.Context, ownerUserID string) (map[string]string, error) {
	var rows []configRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT owner_user_id, key, value FROM config_kv WHERE owner_user_id = ?`), ownerUserID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "querying config", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// SetConfigValue upserts one key/value pair for ownerUserID.
func (s *Store) SetConfigValue(ctx context.Context, ownerUserID, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO config_kv (owner_user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(owner_user_id, key) DO UPDATE SET value = excluded.value
	`), ownerUserID, key, value)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "setting config value", err)
	}
	return nil
}

// DeleteConfigValue removes one key for ownerUserID, if present.
func (s *Store) DeleteConfigValue(ctx context.Context, ownerUserID, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM config_kv WHERE owner_user_id = ? AND key = ?`), ownerUserID, key)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "deleting config value", err)
	}
	return nil
}
