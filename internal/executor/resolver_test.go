package executor

import (
	"testing"

	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_LocalAndOfflineRemote(t *testing.T) {
	reg := registry.New(testLogger(t), nil)
	defer reg.Stop()
	r := NewResolver(&Local{}, reg)

	iface, ok := r.Resolve(LocalExecutorID)
	require.True(t, ok)
	assert.NotNil(t, iface)

	iface, ok = r.Resolve("")
	require.True(t, ok)
	assert.NotNil(t, iface)

	_, ok = r.Resolve("never-registered")
	assert.False(t, ok)
}

func TestResolver_RemoteOnceOnline(t *testing.T) {
	reg := registry.New(testLogger(t), nil)
	defer reg.Stop()
	r := NewResolver(&Local{}, reg)

	conn := &fakeConn{}
	reg.Register(conn, "exec-1", "box", nil, "v1", "user-1")

	iface, ok := r.Resolve("exec-1")
	require.True(t, ok)
	assert.IsType(t, &Remote{}, iface)
}
