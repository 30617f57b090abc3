package tmuxrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget(t *testing.T) {
	r := &Runner{sessionName: "claude-host"}
	assert.Equal(t, "claude-host:my-session", r.target("my-session"))
}

func TestMaybeInjectAgentSessionID_NoBinaryConfigured(t *testing.T) {
	r := &Runner{}
	id, cmd := r.maybeInjectAgentSessionID("claude -p hi")
	assert.Empty(t, id)
	assert.Equal(t, "claude -p hi", cmd)
}

func TestMaybeInjectAgentSessionID_NonMatchingCommand(t *testing.T) {
	r := &Runner{agentBinary: "claude"}
	id, cmd := r.maybeInjectAgentSessionID("bash")
	assert.Empty(t, id)
	assert.Equal(t, "bash", cmd)
}

func TestMaybeInjectAgentSessionID_MatchingCommandAppendsFlag(t *testing.T) {
	r := &Runner{agentBinary: "claude"}
	id, cmd := r.maybeInjectAgentSessionID("claude --dangerously-skip-permissions")
	assert.NotEmpty(t, id)
	assert.Contains(t, cmd, "--session-id "+id)
}

func TestCreateWindow_RejectsInvalidName(t *testing.T) {
	r := &Runner{sessionName: "claude-host"}
	err := r.CreateWindow(context.Background(), "bad name!", "bash", "")
	assert.Error(t, err)
}

func TestAttachCommand(t *testing.T) {
	r := &Runner{sessionName: "claude-host"}
	assert.Equal(t, []string{"tmux", "attach-session", "-t", "claude-host:foo"}, r.AttachCommand("foo"))
}
