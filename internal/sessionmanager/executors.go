package sessionmanager

import (
	"context"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// ListExecutors returns every executor record owned by userID, overlaid
// with current online status from the registry.
func (m *Manager) ListExecutors(ctx context.Context, userID string) ([]domain.ExecutorRecord, error) {
	recs, err := m.store.ListExecutorsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.registry == nil {
		return recs, nil
	}
	for i := range recs {
		if m.registry.IsOnline(recs[i].ID) {
			recs[i].Status = domain.ExecutorOnline
		} else {
			recs[i].Status = domain.ExecutorOffline
		}
	}
	return recs, nil
}

// UpgradeExecutor asks a connected executor owned by userID to exit so a
// supervisor restarts it (spec.md §4.5.1 "upgrade").
func (m *Manager) UpgradeExecutor(ctx context.Context, userID, executorID, reason string) error {
	recs, err := m.store.ListExecutorsByOwner(ctx, userID)
	if err != nil {
		return err
	}
	owned := false
	for _, r := range recs {
		if r.ID == executorID {
			owned = true
			break
		}
	}
	if !owned {
		return domain.New(domain.ErrNotOwned, "executor not owned by caller: "+executorID)
	}
	if m.registry == nil {
		return domain.New(domain.ErrExecutorOffline, "no registry configured")
	}
	return m.registry.Upgrade(executorID, reason)
}
