// Package sessionmanager is the single source of truth for session metadata
// and the routing layer over executors (spec.md §4.6, component C6).
package sessionmanager

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/common/appctx"
	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/internal/store"
)

// abandonThreshold is how long an executor may stay offline before its
// sessions are pruned from the store (spec.md §4.6 "list()").
const abandonThreshold = 10 * time.Minute

// backgroundOpTimeout bounds store calls made from registry callbacks and
// the sweep loop, which run off no request context of their own.
const backgroundOpTimeout = 10 * time.Second

// sweepInterval is how often the background sweep applies the abandon
// threshold proactively (SPEC_FULL.md §4.6 "session activity sweep").
const sweepInterval = 30 * time.Second

// analyzeInterval is how often active terminal sessions are probed for
// needs_input (spec.md §3 "needs_input", §4.1 "Analyze / summarize"); wider
// than sweepInterval since each probe spawns an agent subprocess.
const analyzeInterval = 2 * time.Minute

// analyzeSweepTimeout bounds one full pass over every active session, each
// of which may spawn an agent subprocess with its own ~60 s allowance
// (tmuxrunner.probe) — much longer than backgroundOpTimeout, which is sized
// for a single store call.
const analyzeSweepTimeout = 5 * time.Minute

// Store is the metadata persistence surface SessionManager drives.
type Store interface {
	CreateSession(ctx context.Context, sess *domain.Session) error
	GetSession(ctx context.Context, name string) (*domain.Session, error)
	ListSessionsByOwner(ctx context.Context, ownerUserID string) ([]domain.Session, error)
	ListAllSessions(ctx context.Context) ([]domain.Session, error)
	UpdateSessionActivity(ctx context.Context, name string, lastActivity time.Time, needsInput bool) error
	UpdateSessionOwner(ctx context.Context, name, ownerUserID string) error
	DeleteSession(ctx context.Context, name string) error

	UpsertExecutorRecord(ctx context.Context, rec *domain.ExecutorRecord) error
	ListExecutorsByOwner(ctx context.Context, ownerUserID string) ([]domain.ExecutorRecord, error)

	CreateExecutorKey(ctx context.Context, key *domain.ExecutorKey) error
	ListExecutorKeys(ctx context.Context, ownerUserID string) ([]domain.ExecutorKey, error)
	FindExecutorKeyByHash(ctx context.Context, hash string) (*domain.ExecutorKey, error)
	TouchExecutorKey(ctx context.Context, id string, when time.Time) error
	RevokeExecutorKey(ctx context.Context, id string) error

	GetConfig(ctx context.Context, ownerUserID string) (map[string]string, error)
	SetConfigValue(ctx context.Context, ownerUserID, key, value string) error
	DeleteConfigValue(ctx context.Context, ownerUserID, key string) error
}

var _ Store = (*store.Store)(nil)

// Manager implements spec.md §4.6's SessionManager.
type Manager struct {
	store    Store
	resolver executor.Resolver
	registry *registry.Registry
	logger   *logger.Logger

	stop chan struct{}
}

// New creates a Manager and starts its 30 s abandoned-session sweep.
// reg may be nil when no remote executors are configured; it supplies
// online status, receives the heartbeat callback driving
// adoptOrphanedSessions and the change callback persisting executor
// records, and carries upgrade requests.
func New(st Store, resolver executor.Resolver, reg *registry.Registry, log *logger.Logger) *Manager {
	m := &Manager{
		store:    st,
		resolver: resolver,
		registry: reg,
		logger:   log.WithFields(zap.String("component", "session_manager")),
		stop:     make(chan struct{}),
	}
	if reg != nil {
		reg.OnHeartbeat(func(executorID string, sessions []domain.SessionLiveness) {
			ctx, cancel := appctx.Detached(context.Background(), m.stop, backgroundOpTimeout)
			defer cancel()
			if err := m.adoptOrphanedSessions(ctx, executorID, sessions); err != nil {
				m.logger.Error("adopt orphaned sessions failed", zap.String("executor_id", executorID), zap.Error(err))
			}
		})
		reg.OnChange(func(rec domain.ExecutorRecord, online bool) {
			ctx, cancel := appctx.Detached(context.Background(), m.stop, backgroundOpTimeout)
			defer cancel()
			if err := m.store.UpsertExecutorRecord(ctx, &rec); err != nil {
				m.logger.Error("persisting executor record failed", zap.String("executor_id", rec.ID), zap.Error(err))
			}
		})
	}
	go m.sweepLoop()
	return m
}

// Stop halts the background sweep.
func (m *Manager) Stop() { close(m.stop) }

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	analyzeTicker := time.NewTicker(analyzeInterval)
	defer analyzeTicker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := appctx.Detached(context.Background(), m.stop, backgroundOpTimeout)
			err := m.sweepAbandoned(ctx)
			cancel()
			if err != nil {
				m.logger.Error("abandoned session sweep failed", zap.Error(err))
			}
		case <-analyzeTicker.C:
			ctx, cancel := appctx.Detached(context.Background(), m.stop, analyzeSweepTimeout)
			m.analyzeActiveSessions(ctx)
			cancel()
		}
	}
}

func (m *Manager) isExecutorOnline(executorID string) bool {
	if executorID == "" || executorID == domain.LocalExecutorID {
		return true
	}
	if m.registry == nil {
		return false
	}
	return m.registry.IsOnline(executorID)
}

// sweepAbandoned removes sessions whose executor has been offline beyond
// abandonThreshold (spec.md §4.6 "list()" abandon-threshold pruning,
// applied proactively per SPEC_FULL.md's supplemental sweep).
func (m *Manager) sweepAbandoned(ctx context.Context) error {
	sessions, err := m.store.ListAllSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if m.isExecutorOnline(sess.ExecutorID) {
			continue
		}
		if time.Since(sess.LastActivity) < abandonThreshold {
			continue
		}
		if err := m.store.DeleteSession(ctx, sess.Name); err != nil {
			return err
		}
	}
	return nil
}
