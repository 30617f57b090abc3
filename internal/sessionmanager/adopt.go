package sessionmanager

import (
	"context"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// adoptOrphanedSessions reconciles the store against one executor's latest
// heartbeat liveness list: unknown session names get a minimal row, and
// rows the executor no longer lists are removed once the executor has been
// reachable since the row's creation (spec.md §4.6 "adoptOrphanedSessions").
func (m *Manager) adoptOrphanedSessions(ctx context.Context, executorID string, liveness []domain.SessionLiveness) error {
	rec, ok := m.registry.Snapshot(executorID)
	if !ok {
		return nil
	}

	existing, err := m.store.ListAllSessions(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]domain.Session, len(existing))
	for _, s := range existing {
		if s.ExecutorID == executorID {
			byName[s.Name] = s
		}
	}

	live := make(map[string]domain.SessionLiveness, len(liveness))
	for _, l := range liveness {
		live[l.Name] = l
	}

	now := time.Now().UTC()
	for _, l := range liveness {
		if _, known := byName[l.Name]; known {
			continue
		}
		sess := &domain.Session{
			Name: l.Name, OwnerUserID: rec.OwnerUserID, ExecutorID: executorID,
			Mode: domain.ModeTerminal, CreatedAt: now, LastActivity: now,
		}
		if err := m.store.CreateSession(ctx, sess); err != nil {
			return err
		}
	}

	for name, sess := range byName {
		if _, stillLive := live[name]; stillLive {
			continue
		}
		if sess.CreatedAt.Before(rec.LastSeen) {
			if err := m.store.DeleteSession(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// AdoptUnownedResources assigns every session with no owner to userID, used
// on first login of the configured admin email (spec.md §4.6
// "adoptUnownedResources"). Idempotent: a second call finds nothing to do.
func (m *Manager) AdoptUnownedResources(ctx context.Context, userID string) error {
	sessions, err := m.store.ListAllSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.OwnerUserID != "" {
			continue
		}
		if err := m.store.UpdateSessionOwner(ctx, sess.Name, userID); err != nil {
			return err
		}
	}
	return nil
}
