package executor

import (
	"context"
	"testing"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	written []*wsproto.Frame
}

func (c *fakeConn) WriteFrame(f *wsproto.Frame) error { c.written = append(c.written, f); return nil }
func (c *fakeConn) Close() error                      { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "text"})
	require.NoError(t, err)
	return log
}

func TestRemote_ListSessionsDecodesResult(t *testing.T) {
	reg := registry.New(testLogger(t), nil)
	defer reg.Stop()
	conn := &fakeConn{}
	reg.Register(conn, "exec-1", "box", nil, "v1", "user-1")

	rm := NewRemote("exec-1", reg)

	done := make(chan struct {
		infos []WindowInfo
		err   error
	}, 1)
	go func() {
		infos, err := rm.ListSessions(context.Background())
		done <- struct {
			infos []WindowInfo
			err   error
		}{infos, err}
	}()

	require.Eventually(t, func() bool { return len(conn.written) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, wsproto.OpListSessions, conn.written[0].Type)
	ok := true
	reg.HandleResponse("exec-1", &wsproto.Frame{
		Type: wsproto.FrameResponse, ID: conn.written[0].ID, OK: &ok,
		Data: []byte(`{"sessions":[{"Name":"w1","Alive":true,"LastActivity":1700000000}]}`),
	})

	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.infos, 1)
	assert.Equal(t, "w1", res.infos[0].Name)
	assert.True(t, res.infos[0].Alive)
}

func TestRemote_CwdDecodesResult(t *testing.T) {
	reg := registry.New(testLogger(t), nil)
	defer reg.Stop()
	conn := &fakeConn{}
	reg.Register(conn, "exec-1", "box", nil, "v1", "user-1")
	rm := NewRemote("exec-1", reg)

	done := make(chan struct {
		cwd string
		err error
	}, 1)
	go func() {
		cwd, err := rm.Cwd(context.Background(), "sess")
		done <- struct {
			cwd string
			err error
		}{cwd, err}
	}()

	require.Eventually(t, func() bool { return len(conn.written) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, wsproto.OpSessionCwd, conn.written[0].Type)
	ok := true
	reg.HandleResponse("exec-1", &wsproto.Frame{
		Type: wsproto.FrameResponse, ID: conn.written[0].ID, OK: &ok,
		Data: []byte(`{"cwd":"/home/user/proj"}`),
	})

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "/home/user/proj", res.cwd)
}

func TestRemote_CreateSessionSendsExpectedParams(t *testing.T) {
	reg := registry.New(testLogger(t), nil)
	defer reg.Stop()
	conn := &fakeConn{}
	reg.Register(conn, "exec-1", "box", nil, "v1", "user-1")
	rm := NewRemote("exec-1", reg)

	errs := make(chan error, 1)
	go func() {
		errs <- rm.CreateSession(context.Background(), "sess", "bash", "/tmp")
	}()

	require.Eventually(t, func() bool { return len(conn.written) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, wsproto.OpCreateSession, conn.written[0].Type)
	ok := true
	reg.HandleResponse("exec-1", &wsproto.Frame{Type: wsproto.FrameResponse, ID: conn.written[0].ID, OK: &ok})
	assert.NoError(t, <-errs)
}
