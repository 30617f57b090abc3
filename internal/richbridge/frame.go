package richbridge

import "encoding/json"

// sniffFields is the subset of an agent event's shape richbridge needs to
// inspect; anything else passes through opaque (spec.md §4.3.3).
type sniffFields struct {
	Type            string `json:"type"`
	Subtype         string `json:"subtype"`
	SessionID       string `json:"session_id"`
	ParentToolUseID string `json:"parent_tool_use_id"`
}

// sniffEvent parses one stdout line into a RawEvent. Lines that fail to
// parse as JSON are wrapped into {type:"raw", text:<line>} and persisted
// verbatim, per spec.md §4.3.3.
func sniffEvent(line []byte) RawEvent {
	var f sniffFields
	if err := json.Unmarshal(line, &f); err != nil {
		wrapped, _ := json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: eventTypeRaw, Text: string(line)})
		return RawEvent{Type: eventTypeRaw, Raw: wrapped}
	}
	return RawEvent{
		Type:            f.Type,
		Subtype:         f.Subtype,
		SessionID:       f.SessionID,
		ParentToolUseID: f.ParentToolUseID,
		Raw:             append(json.RawMessage(nil), line...),
	}
}

func (e RawEvent) isInit() bool {
	return e.Type == eventTypeSystem && e.Subtype == eventSubtypeInit
}

func (e RawEvent) isResult() bool {
	return e.Type == eventTypeResult
}

func (e RawEvent) isStreamEvent() bool {
	return e.Type == eventTypeStreamEvent
}

func (e RawEvent) belongsToSubAgent() bool {
	return e.ParentToolUseID != ""
}
