// Package wsproto defines the JSON envelopes used over every WebSocket this
// control plane speaks: the browser<->bridge protocols (spec.md §4.3.2) and
// the executor control/terminal-channel protocol (spec.md §4.5.1, §6).
package wsproto

import "encoding/json"

// Frame is the generic envelope for the executor control channel
// (spec.md §4.5.1, §6 "Executor control protocol"). Request/response pairs
// correlate on ID; register/heartbeat frames carry no ID.
type Frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	OK    *bool           `json:"ok,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`

	// register fields
	ExecutorID string   `json:"executorId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Version    string   `json:"version,omitempty"`

	// heartbeat field
	Sessions json.RawMessage `json:"sessions,omitempty"`

	// upgrade field
	Reason string `json:"reason,omitempty"`
}

// Frame type constants (spec.md §4.5.1, §6).
const (
	FrameRegister  = "register"
	FrameHeartbeat = "heartbeat"
	FrameResponse  = "response"
	FramePing      = "ping"
	FrameUpgrade   = "upgrade"
)

// RPC op constants mirror ExecutorInterface operations (spec.md §4.5.1).
const (
	OpCreateSession        = "create_session"
	OpCreateRichSession     = "create_rich_session"
	OpCreateJob             = "create_job"
	OpDeleteSession         = "delete_session"
	OpDeleteRichSession     = "delete_rich_session"
	OpForkSession           = "fork_session"
	OpSessionCwd            = "session_cwd"
	OpListSessions          = "list_sessions"
	OpSnapshotSession       = "snapshot_session"
	OpSnapshotRichSession   = "snapshot_rich_session"
	OpSummarizeSession      = "summarize_session"
	OpAnalyzeSession        = "analyze_session"
	OpAttachSession         = "attach_session"
	OpAttachRichSession     = "attach_rich_session"
)

// NewRequest builds a Control -> Executor request frame with a fresh id.
func NewRequest(id, op string, params interface{}) (*Frame, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Frame{Type: op, ID: id, Data: data}, nil
}

// NewResponse builds an Executor -> Control reply frame.
func NewResponse(id string, ok bool, data interface{}, errMsg string) (*Frame, error) {
	f := &Frame{Type: FrameResponse, ID: id, OK: &ok, Error: errMsg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = raw
	}
	return f, nil
}

// Decode unmarshals f.Data into v.
func (f *Frame) Decode(v interface{}) error {
	if len(f.Data) == 0 {
		return nil
	}
	return json.Unmarshal(f.Data, v)
}

// BridgeMessage is the envelope clients and the rich bridge exchange over a
// rich-session WebSocket (spec.md §4.3.2).
type BridgeMessage struct {
	Type string `json:"type"`

	// client -> bridge
	Text string `json:"text,omitempty"`

	// bridge -> client
	Event        json.RawMessage `json:"event,omitempty"`
	Message      string          `json:"message,omitempty"`
	Streaming    *bool           `json:"streaming,omitempty"`
	ProcessAlive *bool           `json:"process_alive,omitempty"`
}

// BridgeMessage.Type values (spec.md §4.3.2).
const (
	BridgePrompt       = "prompt"
	BridgeInterrupt    = "interrupt"
	BridgeRestart      = "restart"
	BridgeEvent        = "event"
	BridgeTurnComplete = "turn_complete"
	BridgeError        = "error"
	BridgeSessionState = "session_state"
)

// TerminalControl is the one structured message shape a terminal client may
// send besides raw pty bytes (spec.md §4.2).
type TerminalControl struct {
	Resize *[2]int `json:"resize,omitempty"`
}
