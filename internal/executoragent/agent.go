// Package executoragent is the client side of the executor control protocol
// (spec.md §4.5.1, §6): it dials the control plane's control channel,
// registers, answers RPCs against a local tmuxrunner/executor.Local, and
// dials back a terminal byte-channel on every attach request. This is the
// process started by `claude-host executor`.
package executoragent

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/internal/terminalbridge"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

const heartbeatInterval = 10 * time.Second

// Config names one executor process's identity and where to dial.
type Config struct {
	URL        string
	Token      string
	ExecutorID string
	Name       string
	Labels     []string
	Version    string
}

// Agent is one running executor process: it speaks the control protocol
// over one persistent WebSocket and serves attach requests against the
// same local executor.Local every other component on this binary shares.
type Agent struct {
	cfg       Config
	local     *executor.Local
	terminals *terminalbridge.Bridge
	rich      *richbridge.Bridge
	logger    *logger.Logger

	writeMu   sync.Mutex
	conn      *websocket.Conn
	upgrading atomic.Bool
	closing   atomic.Bool
}

// New creates an Agent. local is the executor facade bound to this host's
// own TmuxRunner; terminals/rich serve the byte-channels attach requests
// dial back for (the same bridges a local-mode control plane would use).
func New(cfg Config, local *executor.Local, terminals *terminalbridge.Bridge, rich *richbridge.Bridge, log *logger.Logger) *Agent {
	return &Agent{
		cfg:       cfg,
		local:     local,
		terminals: terminals,
		rich:      rich,
		logger:    log.WithFields(zap.String("component", "executoragent")),
	}
}

// Run dials the control plane, registers, and serves RPCs and heartbeats
// until ctx is cancelled or the connection drops. It does not reconnect;
// callers that want retry-with-backoff wrap Run in their own loop.
func (a *Agent) Run(ctx context.Context) error {
	header := http.Header{}
	header.Set("x-executor-token", a.cfg.Token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.cfg.URL, header)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "dialing control plane", err)
	}
	a.conn = conn
	defer conn.Close()

	register := &wsproto.Frame{
		Type: wsproto.FrameRegister, ExecutorID: a.cfg.ExecutorID,
		Name: a.cfg.Name, Labels: a.cfg.Labels, Version: a.cfg.Version,
	}
	if err := a.writeFrame(register); err != nil {
		return err
	}
	a.logger.Info("registered with control plane", zap.String("executor_id", a.cfg.ExecutorID))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.heartbeatLoop(runCtx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if a.upgrading.Load() || a.closing.Load() {
				return nil
			}
			return domain.Wrap(domain.ErrIOFailure, "control channel closed", err)
		}
		var frame wsproto.Frame
		if json.Unmarshal(data, &frame) != nil {
			continue
		}
		go a.handleFrame(runCtx, &frame)
	}
}

// Close closes the control connection, unblocking Run's read loop so it
// returns nil instead of a dropped-connection error. Safe to call before
// Run has established a connection.
func (a *Agent) Close() error {
	a.closing.Store(true)
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

func (a *Agent) writeFrame(f *wsproto.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.TextMessage, data)
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sendHeartbeat(ctx)
		}
	}
}

func (a *Agent) sendHeartbeat(ctx context.Context) {
	windows, err := a.local.ListSessions(ctx)
	if err != nil {
		a.logger.Warn("listing sessions for heartbeat failed", zap.Error(err))
		return
	}
	liveness := make([]domain.SessionLiveness, len(windows))
	for i, w := range windows {
		liveness[i] = domain.SessionLiveness{Name: w.Name, Alive: w.Alive, LastActivity: w.LastActivity}
	}
	sessions, err := json.Marshal(liveness)
	if err != nil {
		return
	}
	_ = a.writeFrame(&wsproto.Frame{Type: wsproto.FrameHeartbeat, Sessions: sessions})
}

// handleFrame dispatches one control-to-executor request and writes back a
// response frame; an upgrade frame instead closes the control connection so
// Run returns cleanly and a process supervisor can restart it (spec.md §4.5.1).
func (a *Agent) handleFrame(ctx context.Context, frame *wsproto.Frame) {
	switch frame.Type {
	case wsproto.OpAttachSession, wsproto.OpAttachRichSession:
		a.handleAttach(ctx, frame)
		return
	case wsproto.FrameUpgrade:
		a.logger.Info("upgrade requested, exiting", zap.String("reason", frame.Reason))
		a.upgrading.Store(true)
		a.conn.Close()
		return
	}

	data, opErr := a.dispatchOp(ctx, frame)
	resp, err := wsproto.NewResponse(frame.ID, opErr == nil, data, errString(opErr))
	if err != nil {
		a.logger.Error("encoding rpc response failed", zap.Error(err))
		return
	}
	if err := a.writeFrame(resp); err != nil {
		a.logger.Error("writing rpc response failed", zap.Error(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
