package tmuxrunner

import (
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/fergusfinn/claude-host/internal/common/stringutil"
)

const probeCaptureLines = 200

// descriptionMaxLen bounds the agent-produced description: the probe prompt
// asks for "one short sentence" but nothing stops the agent from returning
// a wall of text, and this is stored and rendered as a session's summary.
const descriptionMaxLen = 240

// probeResult is what the agent's one-shot probe invocation is asked to
// produce as JSON (spec.md §4.1 "Analyze / summarize").
type probeResult struct {
	Description string `json:"description"`
	NeedsInput  bool   `json:"needs_input"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Summarize captures the last 200 pane lines and asks the agent for a short
// description. Never returns an error: on any failure it returns an empty
// string (spec.md §4.1 "never throw from these probes").
func (r *Runner) Summarize(ctx context.Context, name, agentBinary string) string {
	res := r.probe(ctx, name, agentBinary, "Summarize the above terminal session in one short sentence. Respond with JSON: {\"description\": \"...\"}.")
	return res.Description
}

// Analyze captures the last 200 pane lines and asks the agent for a short
// description plus a needs_input boolean. Never returns an error.
func (r *Runner) Analyze(ctx context.Context, name, agentBinary string) (description string, needsInput bool) {
	res := r.probe(ctx, name, agentBinary, "Analyze the above terminal session. Respond with JSON: {\"description\": \"...\", \"needs_input\": true|false} where needs_input is true if the session is blocked waiting on the user.")
	return res.Description, res.NeedsInput
}

func (r *Runner) probe(ctx context.Context, name, agentBinary, instruction string) probeResult {
	pane, err := r.CapturePane(ctx, name, probeCaptureLines)
	if err != nil {
		return probeResult{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := pane + "\n\n" + instruction
	cmd := exec.CommandContext(probeCtx, agentBinary, "-p", prompt)
	out, err := cmd.Output()
	if err != nil {
		return probeResult{}
	}

	return parseProbeResult(string(out))
}

// parseProbeResult tolerates fenced JSON wrappers and surrounding prose,
// returning the zero value on any parse failure.
func parseProbeResult(raw string) probeResult {
	candidate := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	} else if start := strings.Index(candidate, "{"); start >= 0 {
		if end := strings.LastIndex(candidate, "}"); end > start {
			candidate = candidate[start : end+1]
		}
	}

	var res probeResult
	if err := json.Unmarshal([]byte(candidate), &res); err != nil {
		return probeResult{}
	}
	res.Description = stringutil.TruncateStringWithEllipsis(res.Description, descriptionMaxLen)
	return res
}
