package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SessionCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := &domain.Session{
		Name: "sess-1", OwnerUserID: "user-1", ExecutorID: domain.LocalExecutorID,
		Mode: domain.ModeTerminal, Command: "bash", CreatedAt: time.Now().UTC(), LastActivity: time.Now().UTC(),
	}
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.Name)
	assert.Equal(t, "user-1", got.OwnerUserID)

	all, err := s.ListSessionsByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.UpdateSessionActivity(ctx, "sess-1", time.Now().UTC(), true))
	got, err = s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.NeedsInput)

	require.NoError(t, s.DeleteSession(ctx, "sess-1"))
	_, err = s.GetSession(ctx, "sess-1")
	assert.Equal(t, domain.ErrNotFound, domain.CodeOf(err))
}

func TestStore_ExecutorKeyLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := &domain.ExecutorKey{
		ID: "key-1", OwnerUserID: "user-1", Name: "laptop",
		KeyHash: "deadbeef", KeyPrefix: "chk_dead", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateExecutorKey(ctx, key))

	found, err := s.FindExecutorKeyByHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "key-1", found.ID)

	require.NoError(t, s.RevokeExecutorKey(ctx, "key-1"))
	_, err = s.FindExecutorKeyByHash(ctx, "deadbeef")
	assert.Equal(t, domain.ErrNotFound, domain.CodeOf(err))

	keys, err := s.ListExecutorKeys(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].Revoked)
}

func TestStore_ConfigKV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetConfigValue(ctx, "user-1", domain.ConfigKeyTheme, "dark"))
	cfg, err := s.GetConfig(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg[domain.ConfigKeyTheme])

	require.NoError(t, s.DeleteConfigValue(ctx, "user-1", domain.ConfigKeyTheme))
	cfg, err = s.GetConfig(ctx, "user-1")
	require.NoError(t, err)
	assert.NotContains(t, cfg, domain.ConfigKeyTheme)
}

func TestStore_RichSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	state, err := s.LoadRichSession(ctx, "rich-1")
	require.NoError(t, err)
	assert.Nil(t, state)

	persisted := &richbridge.PersistedState{
		SessionID: "rich-1",
		Events:    []richbridge.RawEvent{},
	}
	require.NoError(t, s.SaveRichSession(ctx, "rich-1", persisted))

	loaded, err := s.LoadRichSession(ctx, "rich-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "rich-1", loaded.SessionID)

	require.NoError(t, s.DeleteRichSession(ctx, "rich-1"))
	loaded, err = s.LoadRichSession(ctx, "rich-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
