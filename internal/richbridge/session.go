package richbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"go.uber.org/zap"
)

const persistDebounce = 2 * time.Second

// ClientMessage mirrors wsproto.BridgeMessage's client->bridge shapes.
type ClientMessage struct {
	Type string
	Text string
}

// ClientEvent mirrors wsproto.BridgeMessage's bridge->client shapes.
type ClientEvent struct {
	Type         string
	Event        []byte
	Message      string
	Streaming    bool
	ProcessAlive *bool
}

// Client is the single socket a session is bridged to at any moment.
type Client struct {
	Outbox chan ClientEvent
}

// session is the single-owner actor for one rich-mode session
// (spec.md §4.3, "the bridge itself runs as a single cooperative task").
type session struct {
	name    string
	command string
	store   Store
	spawner Spawner
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *logger.Logger

	ops chan func()

	state          TurnState
	turning        bool
	events         []RawEvent
	dirty          bool
	sawInit        bool
	agentSessionID string
	client         *Client
	proc           Process
	persistTimer   *time.Timer
}

func newSession(ctx context.Context, name, command string, store Store, spawner Spawner, log *logger.Logger) *session {
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		name:    name,
		command: command,
		store:   store,
		spawner: spawner,
		ctx:     sctx,
		cancel:  cancel,
		logger:  log.WithFields(zap.String("session", name)),
		ops:     make(chan func(), 32),
		state:   StateIdle,
	}
	go s.loop()
	return s
}

// loop is the session's single cooperative task: every externally visible
// operation is submitted as a closure and runs serialized here, so the
// state machine never needs its own lock.
func (s *session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case op := <-s.ops:
			op()
		}
	}
}

func (s *session) submit(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.ctx.Done():
	}
}

// restoreFromStore lazily restores persisted events on first attach
// (spec.md §4.3.4 "On control-plane start, the state is lazily restored on
// first attach").
func (s *session) restoreFromStore() {
	if s.store == nil {
		return
	}
	state, err := s.store.LoadRichSession(s.ctx, s.name)
	if err != nil || state == nil {
		return
	}
	s.events = state.Events
	s.agentSessionID = state.SessionID
	for _, e := range s.events {
		if e.isInit() {
			s.sawInit = true
		}
	}
}

// AttachClient installs c as the session's sole client, dropping any
// previous client socket first, replays the persisted log, then emits
// exactly one session_state (spec.md §4.3.2 ordering guarantees,
// §4.3.5 "Duplicate client connect").
func (s *session) AttachClient(c *Client) {
	s.submit(func() {
		if len(s.events) == 0 && !s.sawInit {
			s.restoreFromStore()
		}
		if s.client != nil {
			close(s.client.Outbox)
		}
		s.client = c

		for _, e := range s.events {
			c.Outbox <- ClientEvent{Type: "event", Event: []byte(e.Raw)}
		}
		alive := s.proc != nil
		c.Outbox <- ClientEvent{Type: "session_state", Streaming: s.turning, ProcessAlive: &alive}
	})
}

// DetachClient removes c if it is still the current client.
func (s *session) DetachClient(c *Client) {
	s.submit(func() {
		if s.client == c {
			s.client = nil
		}
	})
}

func (s *session) emit(ev ClientEvent) {
	if s.client == nil {
		return
	}
	select {
	case s.client.Outbox <- ev:
	default:
	}
}

// Prompt implements the client->bridge "prompt" message (spec.md §4.3.1,
// §4.3.2). A prompt while turning is rejected with a non-fatal error.
func (s *session) Prompt(text string) {
	s.submit(func() {
		switch s.state {
		case StateRunning:
			if s.turning {
				s.emit(ClientEvent{Type: "error", Message: "a turn is already in progress"})
				return
			}
			s.turning = true
			s.writePrompt(text)
		case StateIdle:
			s.state = StateSpawning
			s.spawnAndPrompt(text)
		case StateSpawning:
			s.emit(ClientEvent{Type: "error", Message: "agent is still starting"})
		}
	})
}

func (s *session) spawnAndPrompt(text string) {
	proc, err := s.spawner.Spawn(s.ctx, s.command, s.agentSessionID)
	if err != nil {
		s.state = StateIdle
		s.emit(ClientEvent{Type: "error", Message: "failed to start agent: " + err.Error()})
		return
	}
	s.proc = proc
	s.sawInit = false
	s.state = StateRunning
	s.turning = true

	go s.pumpLines(proc)
	go s.awaitExit(proc)

	s.writePrompt(text)
}

func (s *session) writePrompt(text string) {
	if s.proc == nil {
		return
	}
	if _, err := s.proc.Stdin().Write(append([]byte(text), '\n')); err != nil {
		// EPIPE or similar: revert turning, surface error, keep agentSessionID
		// for a resumed respawn on the next prompt (spec.md §4.3.5).
		s.turning = false
		s.emit(ClientEvent{Type: "error", Message: "failed to write to agent: " + err.Error()})
	}
}

// Interrupt implements client->bridge "interrupt".
func (s *session) Interrupt() {
	s.submit(func() {
		if s.proc == nil {
			return
		}
		if _, err := s.proc.Stdin().Write([]byte(`{"type":"interrupt"}` + "\n")); err != nil {
			s.emit(ClientEvent{Type: "error", Message: "failed to interrupt agent: " + err.Error()})
		}
	})
}

// Restart implements client->bridge "restart": kill the current subprocess
// (if any) and return to IDLE so the next prompt spawns fresh.
func (s *session) Restart() {
	s.submit(func() {
		if s.proc != nil {
			_ = s.proc.Kill()
		}
		s.state = StateIdle
		s.turning = false
		s.proc = nil
	})
}

// pumpLines reads agent stdout lines and feeds each one back onto the
// session's own ops channel so framing runs on the single cooperative task.
func (s *session) pumpLines(proc Process) {
	for line := range proc.Lines() {
		captured := line
		s.submit(func() {
			if s.proc != proc {
				return // superseded by a respawn; drop stale output
			}
			s.handleLine(captured)
		})
	}
}

func (s *session) handleLine(line []byte) {
	ev := sniffEvent(line)

	if ev.SessionID != "" && s.agentSessionID == "" {
		s.agentSessionID = ev.SessionID
	}

	if ev.belongsToSubAgent() {
		s.emit(ClientEvent{Type: "event", Event: []byte(ev.Raw)})
		return
	}

	if ev.isInit() {
		if s.sawInit {
			return // one init per spawn (spec.md §4.3.3)
		}
		s.sawInit = true
	}

	if ev.isStreamEvent() {
		s.emit(ClientEvent{Type: "event", Event: []byte(ev.Raw)})
		return
	}

	s.events = append(s.events, ev)
	s.dirty = true
	s.emit(ClientEvent{Type: "event", Event: []byte(ev.Raw)})

	if ev.isResult() {
		s.turning = false
		s.flushNow()
		s.emit(ClientEvent{Type: "turn_complete"})
		return
	}

	s.schedulePersist()
}

// awaitExit waits for the subprocess to exit and feeds the result back
// through ops so it's handled on the single cooperative task
// (spec.md §4.3.5 failure handling).
func (s *session) awaitExit(proc Process) {
	err := proc.Wait()
	s.submit(func() {
		if s.proc != proc {
			return // already superseded
		}
		wasTurning := s.turning
		s.proc = nil
		s.state = StateIdle
		s.turning = false

		switch {
		case err == nil && !wasTurning:
			// clean exit while idle: no error (spec.md §4.3.5)
		case err == nil && wasTurning:
			s.emit(ClientEvent{Type: "error", Message: "Agent process exited unexpectedly"})
			s.emit(ClientEvent{Type: "turn_complete"})
		default:
			s.emit(ClientEvent{Type: "error", Message: fmt.Sprintf("Process exited (%v)", err)})
			if wasTurning {
				s.emit(ClientEvent{Type: "turn_complete"})
			}
		}
		s.flushNow()
	})
}

// schedulePersist arms (or re-arms) the 2-second debounced flush
// (spec.md §4.3.4).
func (s *session) schedulePersist() {
	if s.persistTimer != nil {
		s.persistTimer.Stop()
	}
	s.persistTimer = time.AfterFunc(persistDebounce, func() {
		s.submit(s.flushLocked)
	})
}

func (s *session) flushNow() {
	if s.persistTimer != nil {
		s.persistTimer.Stop()
		s.persistTimer = nil
	}
	s.flushLocked()
}

func (s *session) flushLocked() {
	if !s.dirty || s.store == nil {
		return
	}
	state := &PersistedState{SessionID: s.agentSessionID, Events: s.events}
	if err := s.store.SaveRichSession(s.ctx, s.name, state); err != nil {
		s.logger.Error("persisting rich session state", zap.Error(err))
		return
	}
	s.dirty = false
}

// Close signals any running subprocess and removes the durable record
// (spec.md §4.3.4 "On delete").
func (s *session) Close() {
	s.submit(func() {
		if s.proc != nil {
			_ = s.proc.Kill()
		}
		if s.client != nil {
			close(s.client.Outbox)
			s.client = nil
		}
		if s.store != nil {
			_ = s.store.DeleteRichSession(s.ctx, s.name)
		}
		s.cancel()
	})
}
