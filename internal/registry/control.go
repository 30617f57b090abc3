package registry

import (
	"encoding/json"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// HandleFrame routes one frame received on an executor's control channel
// after registration (spec.md §4.5.1). Unknown types are ignored.
func (r *Registry) HandleFrame(executorID string, frame *wsproto.Frame) {
	switch frame.Type {
	case wsproto.FrameHeartbeat:
		var sessions []domain.SessionLiveness
		if len(frame.Sessions) > 0 {
			_ = json.Unmarshal(frame.Sessions, &sessions)
		}
		r.Heartbeat(executorID, sessions)
	case wsproto.FrameResponse:
		r.HandleResponse(executorID, frame)
	}
}

// Upgrade asks the executor to exit so a supervisor restarts it
// (spec.md §4.5.1 "upgrade"), and logs the request.
func (r *Registry) Upgrade(executorID, reason string) error {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return domain.New(domain.ErrExecutorOffline, "executor not connected: "+executorID)
	}
	if err := ex.conn.WriteFrame(&wsproto.Frame{Type: wsproto.FrameUpgrade, Reason: reason}); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "sending upgrade frame", err)
	}
	r.appendLog(executorID, EventUpgradeSent, reason)
	return nil
}
