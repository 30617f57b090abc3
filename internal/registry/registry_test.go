package registry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	written []*wsproto.Frame
	closed  bool
	failWrite bool
}

func (c *fakeConn) WriteFrame(f *wsproto.Frame) error {
	if c.failWrite {
		return assert.AnError
	}
	c.written = append(c.written, f)
	return nil
}
func (c *fakeConn) Close() error { c.closed = true; return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "text"})
	require.NoError(t, err)
	return log
}

func TestRegistry_CallResolvesOnMatchingResponse(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	conn := &fakeConn{}
	r.Register(conn, "exec-1", "box", nil, "v1", "user-1")

	type result struct {
		data json.RawMessage
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := r.Call(context.Background(), "exec-1", wsproto.OpListSessions, nil)
		done <- result{data: data, err: err}
	}()

	require.Eventually(t, func() bool { return len(conn.written) == 1 }, time.Second, 5*time.Millisecond)
	sentID := conn.written[0].ID

	ok := true
	r.HandleResponse("exec-1", &wsproto.Frame{Type: wsproto.FrameResponse, ID: sentID, OK: &ok, Data: []byte(`{"sessions":[]}`)})

	res := <-done
	assert.NoError(t, res.err)
	assert.JSONEq(t, `{"sessions":[]}`, string(res.data))
}

func TestRegistry_CallFailsWithUnknownExecutor(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	_, err := r.Call(context.Background(), "nonexistent", wsproto.OpListSessions, nil)
	assert.Error(t, err)
	assert.Equal(t, domain.ErrExecutorOffline, domain.CodeOf(err))
}

func TestRegistry_HandleResponseWithUnknownIDIsDropped(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	conn := &fakeConn{}
	r.Register(conn, "exec-1", "box", nil, "v1", "user-1")
	ok := true
	assert.NotPanics(t, func() {
		r.HandleResponse("exec-1", &wsproto.Frame{Type: wsproto.FrameResponse, ID: "no-such-id", OK: &ok})
	})
}

func TestRegistry_DisconnectFailsPendingRPCs(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	conn := &fakeConn{}
	r.Register(conn, "exec-1", "box", nil, "v1", "user-1")

	errs := make(chan error, 1)
	go func() {
		_, err := r.Call(context.Background(), "exec-1", wsproto.OpListSessions, nil)
		errs <- err
	}()

	require.Eventually(t, func() bool { return len(conn.written) == 1 }, time.Second, 5*time.Millisecond)
	r.Disconnect("exec-1", "test disconnect")

	err := <-errs
	assert.Error(t, err)
	assert.True(t, conn.closed)
}

func TestRegistry_SendWritesFrameWithoutWaitingForResponse(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	conn := &fakeConn{}
	r.Register(conn, "exec-1", "box", nil, "v1", "user-1")

	err := r.Send("exec-1", wsproto.OpAttachSession, map[string]interface{}{"name": "sess-1", "channelId": "chan-1"})
	require.NoError(t, err)
	require.Len(t, conn.written, 1)
	assert.Equal(t, wsproto.OpAttachSession, conn.written[0].Type)
}

func TestRegistry_SendFailsWithUnknownExecutor(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	err := r.Send("nonexistent", wsproto.OpAttachSession, nil)
	assert.Error(t, err)
	assert.Equal(t, domain.ErrExecutorOffline, domain.CodeOf(err))
}

func TestRegistry_TerminalChannelRendezvous(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()

	type waitResult struct {
		conn TerminalConn
		err  error
	}
	done := make(chan waitResult, 1)
	go func() {
		conn, err := r.WaitForTerminalChannel(context.Background(), "chan-1", time.Second)
		done <- waitResult{conn, err}
	}()

	time.Sleep(20 * time.Millisecond)
	termConn := &fakeTerminalConn{}
	require.NoError(t, r.ResolveTerminalChannel("chan-1", termConn))

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, termConn, res.conn)
}

func TestRegistry_OrphanTerminalDialIsRefused(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	err := r.ResolveTerminalChannel("never-waited-for", &fakeTerminalConn{})
	assert.Error(t, err)
}

func TestRegistry_TerminalChannelTimesOut(t *testing.T) {
	r := New(testLogger(t), nil)
	defer r.Stop()
	_, err := r.WaitForTerminalChannel(context.Background(), "chan-timeout", 10*time.Millisecond)
	assert.Error(t, err)
}

type fakeTerminalConn struct{}

func (fakeTerminalConn) ReadMessage() (int, []byte, error)  { return 0, nil, nil }
func (fakeTerminalConn) WriteMessage(int, []byte) error     { return nil }
func (fakeTerminalConn) Close() error                       { return nil }
