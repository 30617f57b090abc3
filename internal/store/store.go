// Package store is the sqlite-backed metadata store for sessions, executor
// records, executor keys, per-user config, and durable rich-session state
// (spec.md §3, component shared by C4/C6/C7).
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a single sqlite connection used for both reads and writes.
// A single embedded file backs the whole control plane (spec.md §3), so
// there is no separate reader pool the way the teacher's pgx-backed
// repository maintains one.
type Store struct {
	db *sqlx.DB
}

// Open creates or migrates the sqlite database at path and returns a Store
// bound to it.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	if err := s.initSessionSchema(); err != nil {
		return err
	}
	if err := s.initExecutorSchema(); err != nil {
		return err
	}
	if err := s.initConfigSchema(); err != nil {
		return err
	}
	return s.initRichSessionSchema()
}
