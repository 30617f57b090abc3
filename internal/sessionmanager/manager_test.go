package sessionmanager

import (
	"context"
	"testing"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "text"})
	require.NoError(t, err)
	return log
}

func newTestManager(t *testing.T) (*Manager, *fakeStore, *fakeExecutor) {
	t.Helper()
	st := newFakeStore()
	ex := &fakeExecutor{}
	resolver := &fakeResolver{iface: ex, ok: true}
	m := New(st, resolver, nil, testLogger(t))
	t.Cleanup(m.Stop)
	return m, st, ex
}

func TestManager_CreateAndDelete(t *testing.T) {
	m, _, ex := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, "user-1", "test session", "bash", domain.ModeTerminal, "", "/tmp")
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.OwnerUserID)
	assert.Equal(t, domain.LocalExecutorID, sess.ExecutorID)
	assert.Len(t, ex.created, 1)

	got, err := m.store.GetSession(ctx, sess.Name)
	require.NoError(t, err)
	assert.Equal(t, sess.Name, got.Name)

	require.NoError(t, m.Delete(ctx, "user-1", sess.Name))
	assert.Len(t, ex.deleted, 1)
	_, err = m.store.GetSession(ctx, sess.Name)
	assert.Equal(t, domain.ErrNotFound, domain.CodeOf(err))
}

func TestManager_DeleteIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.NoError(t, m.Delete(context.Background(), "user-1", "never-existed"))
}

func TestManager_DeleteRejectsNonOwner(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := m.Create(ctx, "user-1", "d", "bash", domain.ModeTerminal, "", "/tmp")
	require.NoError(t, err)

	err = m.Delete(ctx, "user-2", sess.Name)
	assert.Equal(t, domain.ErrNotOwned, domain.CodeOf(err))
}

func TestManager_ForkLinksParent(t *testing.T) {
	m, _, ex := newTestManager(t)
	ctx := context.Background()
	source, err := m.Create(ctx, "user-1", "src", "bash", domain.ModeTerminal, "", "/tmp")
	require.NoError(t, err)

	forked, err := m.Fork(ctx, "user-1", source.Name, nil)
	require.NoError(t, err)
	require.NotNil(t, forked.ParentName)
	assert.Equal(t, source.Name, *forked.ParentName)
	assert.Len(t, ex.forked, 1)
	assert.Equal(t, source.Name, ex.forked[0].SourceName)
}

func TestManager_SnapshotDispatchesByMode(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	rich, err := m.Create(ctx, "user-1", "r", "claude", domain.ModeRich, "", "/tmp")
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx, "user-1", rich.Name)
	require.NoError(t, err)
	assert.Contains(t, snap, "rich-snapshot:")
}

func TestManager_ExecutorKeyLifecycle(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	secret, key, err := m.CreateExecutorKey(ctx, "user-1", "laptop")
	require.NoError(t, err)
	assert.True(t, len(secret) == len("chk_")+64)

	found, err := m.ValidateExecutorToken(ctx, secret)
	require.NoError(t, err)
	assert.Equal(t, key.ID, found.ID)

	require.NoError(t, m.RevokeExecutorKey(ctx, "user-1", key.ID))
	_, err = m.ValidateExecutorToken(ctx, secret)
	assert.Error(t, err)
}

func TestManager_Analyze(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := m.Create(ctx, "user-1", "a", "bash", domain.ModeTerminal, "", "/tmp")
	require.NoError(t, err)

	result, err := m.Analyze(ctx, "user-1", sess.Name)
	require.NoError(t, err)
	assert.Equal(t, "idle", result.Description)
}

func TestManager_AnalyzeActiveSessionsPersistsNeedsInput(t *testing.T) {
	m, st, ex := newTestManager(t)
	ctx := context.Background()
	sess, err := m.Create(ctx, "user-1", "b", "bash", domain.ModeTerminal, "", "/tmp")
	require.NoError(t, err)

	ex.analyzeResult = executor.ProbeResult{Description: "blocked", NeedsInput: true}
	m.analyzeActiveSessions(ctx)

	got, err := st.GetSession(ctx, sess.Name)
	require.NoError(t, err)
	assert.True(t, got.NeedsInput)
}

func TestManager_AdoptUnownedResources(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, st.CreateSession(ctx, &domain.Session{Name: "orphan", ExecutorID: domain.LocalExecutorID}))

	require.NoError(t, m.AdoptUnownedResources(ctx, "admin-1"))
	got, err := st.GetSession(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", got.OwnerUserID)

	require.NoError(t, m.AdoptUnownedResources(ctx, "admin-2"))
	got, err = st.GetSession(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", got.OwnerUserID)
}
