// Package richbridge owns the agent subprocess for a rich-mode session and
// bridges it to a single connected client at a time, with durable replay
// for reconnects and control-plane restarts (spec.md §4.3, component C3).
package richbridge

import "encoding/json"

// RawEvent is one line of the agent's stdout stream, already framed into
// either the agent's own JSON object or {type:"raw", text:<line>} when the
// line failed to parse (spec.md §4.3.3). Raw carries the exact bytes
// forwarded to clients and persisted; the other fields are sniffed out of
// Raw to drive framing decisions without a full schema.
type RawEvent struct {
	Type            string          `json:"-"`
	Subtype         string          `json:"-"`
	SessionID       string          `json:"-"`
	ParentToolUseID string          `json:"-"`
	Raw             json.RawMessage `json:"-"`
}

// MarshalJSON emits the original event bytes verbatim.
func (e RawEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

// UnmarshalJSON restores an event from its persisted bytes and re-sniffs the
// framing fields.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	*e = sniffEvent(append([]byte(nil), data...))
	return nil
}

const (
	eventTypeRaw          = "raw"
	eventTypeSystem       = "system"
	eventSubtypeInit      = "init"
	eventTypeResult       = "result"
	eventTypeStreamEvent  = "stream_event"
)

// TurnState is the per-session state machine from spec.md §4.3.1.
type TurnState int

const (
	StateIdle TurnState = iota
	StateSpawning
	StateRunning
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// PersistedState is the durable record written on every debounced/immediate
// flush (spec.md §4.3.4): {sessionId, events}.
type PersistedState struct {
	SessionID string     `json:"sessionId"`
	Events    []RawEvent `json:"events"`
}
