package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
	"go.uber.org/zap"
)

const (
	rpcTimeout            = 30 * time.Second
	heartbeatTimeout       = 45 * time.Second
	healthCheckInterval    = 15 * time.Second
	pendingChannelTimeout  = 10 * time.Second
	logBufferCapacity      = 200
)

// connectedExecutor is the live state for one registered remote executor
// (spec.md §4.5 "State per executor").
type connectedExecutor struct {
	conn        ControlConn
	info        domain.ExecutorRecord
	sessions    []domain.SessionLiveness
	lastSeen    time.Time
	ownerUserID string

	mu       sync.Mutex
	pendings map[string]*pendingRPC
}

type pendingRPC struct {
	resolve chan *wsproto.Frame
	timer   *time.Timer
}

// LogEntry records one notable registry transition (spec.md §4.5.4).
type LogEntry struct {
	Timestamp  time.Time
	ExecutorID string
	Event      string
	Detail     string
}

const (
	EventRegistered  = "registered"
	EventDisconnected = "disconnected"
	EventTimedOut    = "timed_out"
	EventUpgradeSent = "upgrade_sent"
)

// ChangeCallback is invoked whenever an executor's online/offline status
// changes. rec reflects the status at the moment of the transition (its
// Status field already carries the new value).
type ChangeCallback func(rec domain.ExecutorRecord, online bool)

// HeartbeatCallback is invoked on every heartbeat frame so SessionManager
// can run adoptOrphanedSessions against the fresh liveness list
// (spec.md §4.6 "adoptOrphanedSessions").
type HeartbeatCallback func(executorID string, sessions []domain.SessionLiveness)

// Registry owns every connected executor plus pending terminal-channel
// rendezvous state.
type Registry struct {
	logger      *logger.Logger
	onChange    ChangeCallback
	onHeartbeat HeartbeatCallback

	mu        sync.Mutex
	executors map[string]*connectedExecutor

	channelsMu sync.Mutex
	channels   map[string]*pendingChannel

	logsMu sync.Mutex
	logs   []LogEntry

	stop chan struct{}
}

type pendingChannel struct {
	resolve chan TerminalConn
	timer   *time.Timer
}

// New creates a Registry and starts its 15 s health-check ticker
// (spec.md §4.5 "a periodic health-check ticker at 15 s").
func New(log *logger.Logger, onChange ChangeCallback) *Registry {
	r := &Registry{
		logger:    log.WithFields(zap.String("component", "registry")),
		onChange:  onChange,
		executors: make(map[string]*connectedExecutor),
		channels:  make(map[string]*pendingChannel),
		stop:      make(chan struct{}),
	}
	go r.healthCheckLoop()
	return r
}

// OnHeartbeat registers the callback invoked after every heartbeat frame is
// recorded. Only one callback is supported; call before traffic starts.
func (r *Registry) OnHeartbeat(cb HeartbeatCallback) { r.onHeartbeat = cb }

// OnChange replaces the callback invoked on register/disconnect, letting a
// caller wire it up after construction (SessionManager does this so it can
// pass its own method as the callback without a construction-order cycle).
func (r *Registry) OnChange(cb ChangeCallback) { r.onChange = cb }

// Stop halts the health-check ticker.
func (r *Registry) Stop() { close(r.stop) }

func (r *Registry) appendLog(executorID, event, detail string) {
	r.logsMu.Lock()
	defer r.logsMu.Unlock()
	r.logs = append(r.logs, LogEntry{Timestamp: time.Now(), ExecutorID: executorID, Event: event, Detail: detail})
	if len(r.logs) > logBufferCapacity {
		r.logs = r.logs[len(r.logs)-logBufferCapacity:]
	}
}

// Logs returns log entries at or after since.
func (r *Registry) Logs(since time.Time) []LogEntry {
	r.logsMu.Lock()
	defer r.logsMu.Unlock()
	var out []LogEntry
	for _, e := range r.logs {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Register records a new control-channel connection as the authoritative
// identity frame for an executor (spec.md §4.5.1 "register is required
// before any other frame").
func (r *Registry) Register(conn ControlConn, executorID, name string, labels []string, version, ownerUserID string) {
	r.mu.Lock()
	r.executors[executorID] = &connectedExecutor{
		conn:     conn,
		lastSeen: time.Now(),
		ownerUserID: ownerUserID,
		info: domain.ExecutorRecord{
			ID: executorID, OwnerUserID: ownerUserID, Name: name, Labels: labels,
			Status: domain.ExecutorOnline, LastSeen: time.Now(), Version: version,
		},
		pendings: make(map[string]*pendingRPC),
	}
	r.mu.Unlock()

	r.appendLog(executorID, EventRegistered, name)
	if r.onChange != nil {
		r.onChange(domain.ExecutorRecord{
			ID: executorID, OwnerUserID: ownerUserID, Name: name, Labels: labels,
			Status: domain.ExecutorOnline, LastSeen: time.Now(), Version: version,
		}, true)
	}
}

// Heartbeat updates last_seen and replaces the cached session-liveness list.
func (r *Registry) Heartbeat(executorID string, sessions []domain.SessionLiveness) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return
	}
	ex.mu.Lock()
	ex.lastSeen = time.Now()
	ex.sessions = sessions
	ex.mu.Unlock()

	if r.onHeartbeat != nil {
		r.onHeartbeat(executorID, sessions)
	}
}

// Disconnect transitions an executor to offline, fails every pending RPC,
// and removes it from the set (spec.md §4.5.2).
func (r *Registry) Disconnect(executorID, reason string) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	delete(r.executors, executorID)
	r.mu.Unlock()
	if !ok {
		return
	}

	ex.mu.Lock()
	for id, p := range ex.pendings {
		p.timer.Stop()
		close(p.resolve)
		delete(ex.pendings, id)
	}
	info := ex.info
	ex.mu.Unlock()
	_ = ex.conn.Close()

	info.Status = domain.ExecutorOffline
	r.appendLog(executorID, EventDisconnected, reason)
	if r.onChange != nil {
		r.onChange(info, false)
	}
}

// Snapshot returns the current ExecutorRecord for executorID, if connected.
func (r *Registry) Snapshot(executorID string) (domain.ExecutorRecord, bool) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return domain.ExecutorRecord{}, false
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.info, true
}

// SessionsFor returns the last heartbeat's liveness list for executorID.
func (r *Registry) SessionsFor(executorID string) ([]domain.SessionLiveness, bool) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.sessions, true
}

// IsOnline reports whether executorID currently has a connected control
// channel.
func (r *Registry) IsOnline(executorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.executors[executorID]
	return ok
}

func (r *Registry) healthCheckLoop() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweepStaleExecutors()
		}
	}
}

// sweepStaleExecutors forces a disconnect on any executor whose last
// heartbeat is older than the 45 s timeout (spec.md §4.5.2).
func (r *Registry) sweepStaleExecutors() {
	r.mu.Lock()
	var stale []string
	cutoff := time.Now().Add(-heartbeatTimeout)
	for id, ex := range r.executors {
		ex.mu.Lock()
		last := ex.lastSeen
		ex.mu.Unlock()
		if last.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.appendLog(id, EventTimedOut, "no heartbeat within 45s")
		r.Disconnect(id, "heartbeat timeout")
	}
}

// newRPCID mints a fresh correlation id for a control-to-executor RPC.
func newRPCID() string { return uuid.New().String() }
