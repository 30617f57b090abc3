package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/richbridge"
)

func (s *Store) initRichSessionSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS rich_session_state (
		name TEXT PRIMARY KEY,
		events TEXT NOT NULL DEFAULT '[]'
	);
	`)
	return err
}

// LoadRichSession satisfies richbridge.Store, returning the durable event
// log for a rich session, or nil if none has been persisted yet.
func (s *Store) LoadRichSession(ctx context.Context, name string) (*richbridge.PersistedState, error) {
	var eventsJSON string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT events FROM rich_session_state WHERE name = ?`), name).Scan(&eventsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "loading rich session state", err)
	}
	var events []richbridge.RawEvent
	if err := json.Unmarshal([]byte(eventsJSON), &events); err != nil {
		return nil, domain.Wrap(domain.ErrIOFailure, "decoding rich session events", err)
	}
	return &richbridge.PersistedState{SessionID: name, Events: events}, nil
}

// SaveRichSession satisfies richbridge.Store, upserting the full event log.
func (s *Store) SaveRichSession(ctx context.Context, name string, state *richbridge.PersistedState) error {
	eventsJSON, err := json.Marshal(state.Events)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "encoding rich session events", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rich_session_state (name, events) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET events = excluded.events
	`), name, string(eventsJSON))
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "saving rich session state", err)
	}
	return nil
}

// DeleteRichSession satisfies richbridge.Store, removing the persisted log.
func (s *Store) DeleteRichSession(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM rich_session_state WHERE name = ?`), name)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "deleting rich session state", err)
	}
	return nil
}
