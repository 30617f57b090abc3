package sessionmanager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
)

func (m *Manager) slugExists(ctx context.Context, name string) bool {
	_, err := m.store.GetSession(ctx, name)
	return err == nil
}

func (m *Manager) resolveExecutor(userID, executorID string) (executor.Interface, error) {
	if executorID == "" {
		executorID = domain.LocalExecutorID
	}
	iface, ok := m.resolver.Resolve(executorID)
	if !ok {
		return nil, domain.New(domain.ErrNotFound, "executor not found or offline: "+executorID)
	}
	if executorID != domain.LocalExecutorID {
		rec, err := m.store.ListExecutorsByOwner(context.Background(), userID)
		if err == nil {
			owned := false
			for _, r := range rec {
				if r.ID == executorID {
					owned = true
					break
				}
			}
			if !owned {
				return nil, domain.New(domain.ErrNotFound, "executor not found or offline: "+executorID)
			}
		}
	}
	return iface, nil
}

// Create generates a slug, resolves the executor, delegates to its
// create*, and persists the row (spec.md §4.6 "create").
func (m *Manager) Create(ctx context.Context, userID, description, command string, mode domain.Mode, executorID, cwd string) (*domain.Session, error) {
	iface, err := m.resolveExecutor(userID, executorID)
	if err != nil {
		return nil, err
	}
	if executorID == "" {
		executorID = domain.LocalExecutorID
	}
	name := generateSlug(func(n string) bool { return m.slugExists(ctx, n) })

	switch mode {
	case domain.ModeRich:
		err = iface.CreateRichSession(ctx, name, command, cwd)
	default:
		err = iface.CreateSession(ctx, name, command, cwd)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		Name: name, OwnerUserID: userID, ExecutorID: executorID, Mode: mode,
		Command: command, Description: description, CreatedAt: now, LastActivity: now,
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateJob is Create's job-window variant (spec.md §4.6 "createJob").
func (m *Manager) CreateJob(ctx context.Context, userID, prompt string, maxIterations int, command, promptFlag, executorID, cwd string) (*domain.Session, error) {
	iface, err := m.resolveExecutor(userID, executorID)
	if err != nil {
		return nil, err
	}
	if executorID == "" {
		executorID = domain.LocalExecutorID
	}
	name := generateSlug(func(n string) bool { return m.slugExists(ctx, n) })

	if err := iface.CreateJob(ctx, name, command, promptFlag, prompt, cwd, maxIterations); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		Name: name, OwnerUserID: userID, ExecutorID: executorID, Mode: domain.ModeTerminal,
		Command: command, Description: "job", CreatedAt: now, LastActivity: now,
		JobPrompt: &prompt, JobMaxIterations: &maxIterations,
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Fork loads the source row, delegates to the executor's fork op, and
// persists a new row linked by ParentName (spec.md §4.6 "fork").
func (m *Manager) Fork(ctx context.Context, userID, sourceName string, forkHooks map[string]string) (*domain.Session, error) {
	source, err := m.store.GetSession(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	if source.OwnerUserID != userID {
		return nil, domain.New(domain.ErrNotOwned, "session not owned by caller: "+sourceName)
	}

	iface, err := m.resolveExecutor(userID, source.ExecutorID)
	if err != nil {
		return nil, err
	}
	newName := generateSlug(func(n string) bool { return m.slugExists(ctx, n) })

	sourceCwd, err := iface.Cwd(ctx, sourceName)
	if err != nil {
		return nil, err
	}

	err = iface.Fork(ctx, executor.ForkParams{
		SourceName: sourceName, NewName: newName,
		SourceCommand: source.Command, SourceCwd: sourceCwd, ForkHooks: forkHooks,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	parent := sourceName
	sess := &domain.Session{
		Name: newName, OwnerUserID: userID, ExecutorID: source.ExecutorID, Mode: source.Mode,
		Command: source.Command, Description: fmt.Sprintf("forked from %s", sourceName),
		ParentName: &parent, CreatedAt: now, LastActivity: now,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns one session owned by userID, for routes that need its mode
// and executor before dispatching an attach (spec.md §4.7).
func (m *Manager) Get(ctx context.Context, userID, name string) (*domain.Session, error) {
	sess, err := m.store.GetSession(ctx, name)
	if err != nil {
		return nil, err
	}
	if sess.OwnerUserID != userID {
		return nil, domain.New(domain.ErrNotOwned, "session not owned by caller: "+name)
	}
	return sess, nil
}

// List returns every session owned by userID, pruning abandoned ones first
// (spec.md §4.6 "list").
func (m *Manager) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if err := m.sweepAbandoned(ctx); err != nil {
		return nil, err
	}
	return m.store.ListSessionsByOwner(ctx, userID)
}

// Delete is idempotent: a missing row is not an error (spec.md §4.6
// "delete").
func (m *Manager) Delete(ctx context.Context, userID, name string) error {
	sess, err := m.store.GetSession(ctx, name)
	if err != nil {
		if domain.CodeOf(err) == domain.ErrNotFound {
			return nil
		}
		return err
	}
	if sess.OwnerUserID != userID {
		return domain.New(domain.ErrNotOwned, "session not owned by caller: "+name)
	}

	iface, err := m.resolveExecutor(userID, sess.ExecutorID)
	if err != nil {
		return err
	}
	var delErr error
	if sess.Mode == domain.ModeRich {
		delErr = iface.DeleteRichSession(ctx, name)
	} else {
		delErr = iface.DeleteSession(ctx, name)
	}
	if delErr != nil {
		return delErr
	}
	return m.store.DeleteSession(ctx, name)
}

// Snapshot dispatches to the terminal or rich snapshot depending on mode
// (spec.md §4.6 "snapshot").
func (m *Manager) Snapshot(ctx context.Context, userID, name string) (string, error) {
	sess, err := m.store.GetSession(ctx, name)
	if err != nil {
		return "", err
	}
	if sess.OwnerUserID != userID {
		return "", domain.New(domain.ErrNotOwned, "session not owned by caller: "+name)
	}
	iface, err := m.resolveExecutor(userID, sess.ExecutorID)
	if err != nil {
		return "", err
	}
	if sess.Mode == domain.ModeRich {
		return iface.SnapshotRichSession(ctx, name)
	}
	return iface.SnapshotSession(ctx, name)
}

// Summarize and Analyze dispatch the probe ops to the owning executor
// (spec.md §4.1 "Analyze / summarize" exposed at the SessionManager layer).
func (m *Manager) Summarize(ctx context.Context, userID, name string) (string, error) {
	sess, err := m.store.GetSession(ctx, name)
	if err != nil {
		return "", err
	}
	if sess.OwnerUserID != userID {
		return "", domain.New(domain.ErrNotOwned, "session not owned by caller: "+name)
	}
	iface, err := m.resolveExecutor(userID, sess.ExecutorID)
	if err != nil {
		return "", err
	}
	return iface.Summarize(ctx, name)
}

func (m *Manager) Analyze(ctx context.Context, userID, name string) (executor.ProbeResult, error) {
	sess, err := m.store.GetSession(ctx, name)
	if err != nil {
		return executor.ProbeResult{}, err
	}
	if sess.OwnerUserID != userID {
		return executor.ProbeResult{}, domain.New(domain.ErrNotOwned, "session not owned by caller: "+name)
	}
	iface, err := m.resolveExecutor(userID, sess.ExecutorID)
	if err != nil {
		return executor.ProbeResult{}, err
	}
	return iface.Analyze(ctx, name)
}

// analyzeActiveSessions probes every online terminal-mode session for
// whether it is blocked waiting on user input and persists the verdict, the
// only path that ever sets a session's needs_input flag (spec.md §3
// "needs_input"). Bypasses resolveExecutor's ownership check since this
// runs off the background sweep rather than a user request.
func (m *Manager) analyzeActiveSessions(ctx context.Context) {
	sessions, err := m.store.ListAllSessions(ctx)
	if err != nil {
		m.logger.Error("listing sessions for analyze sweep failed", zap.Error(err))
		return
	}
	for _, sess := range sessions {
		if sess.Mode != domain.ModeTerminal {
			continue
		}
		if !m.isExecutorOnline(sess.ExecutorID) {
			continue
		}
		executorID := sess.ExecutorID
		if executorID == "" {
			executorID = domain.LocalExecutorID
		}
		iface, ok := m.resolver.Resolve(executorID)
		if !ok {
			continue
		}
		result, err := iface.Analyze(ctx, sess.Name)
		if err != nil {
			m.logger.Error("analyze probe failed", zap.String("session", sess.Name), zap.Error(err))
			continue
		}
		if err := m.store.UpdateSessionActivity(ctx, sess.Name, sess.LastActivity, result.NeedsInput); err != nil {
			m.logger.Error("persisting analyze result failed", zap.String("session", sess.Name), zap.Error(err))
		}
	}
}
