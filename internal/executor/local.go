package executor

import (
	"context"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/tmuxrunner"
)

// Local implements Interface directly against the control plane's own
// TmuxRunner (spec.md §4.4 "Local behavior").
type Local struct {
	runner      *tmuxrunner.Runner
	agentBinary string
	forkHooks   tmuxrunner.ForkHooks
}

// NewLocal creates a Local executor bound to runner. agentBinary names the
// agent binary used for Summarize/Analyze probes; forkHooks is the
// default-configured fork-hook map for built-in forking.
func NewLocal(runner *tmuxrunner.Runner, agentBinary string, forkHooks tmuxrunner.ForkHooks) *Local {
	return &Local{runner: runner, agentBinary: agentBinary, forkHooks: forkHooks}
}

func (l *Local) CreateSession(ctx context.Context, name, command, cwd string) error {
	return l.runner.CreateWindow(ctx, name, command, cwd)
}

func (l *Local) CreateRichSession(ctx context.Context, name, command, cwd string) error {
	return l.runner.CreateWindow(ctx, name, command, cwd)
}

func (l *Local) CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error {
	return l.runner.CreateJob(ctx, name, command, promptFlag, prompt, cwd, maxIterations)
}

func (l *Local) DeleteSession(ctx context.Context, name string) error {
	return l.runner.DeleteWindow(ctx, name)
}

func (l *Local) DeleteRichSession(ctx context.Context, name string) error {
	return l.runner.DeleteWindow(ctx, name)
}

func (l *Local) Fork(ctx context.Context, params ForkParams) error {
	hooks := l.forkHooks
	if params.ForkHooks != nil {
		hooks = params.ForkHooks
	}
	return l.runner.Fork(ctx, params.SourceName, params.NewName, params.SourceCwd, params.SourceCommand, hooks)
}

func (l *Local) Cwd(ctx context.Context, name string) (string, error) {
	return l.runner.PaneCwd(ctx, name)
}

func (l *Local) ListSessions(ctx context.Context) ([]WindowInfo, error) {
	windows, err := l.runner.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WindowInfo, len(windows))
	for i, w := range windows {
		out[i] = WindowInfo{Name: w.Name, Alive: w.Alive, LastActivity: w.LastActivity.Unix()}
	}
	return out, nil
}

func (l *Local) SnapshotSession(ctx context.Context, name string) (string, error) {
	return l.runner.CapturePane(ctx, name, 500)
}

func (l *Local) SnapshotRichSession(ctx context.Context, name string) (string, error) {
	// Rich-session snapshots are not produced: this always returns
	// InvalidArgument, SessionManager.Snapshot reaches rich sessions only
	// through this method, and RichBridge has no renderer for its event log.
	return "", domain.New(domain.ErrInvalidArgument, "rich session snapshot is not served via the executor facade")
}

func (l *Local) Summarize(ctx context.Context, name string) (string, error) {
	return l.runner.Summarize(ctx, name, l.agentBinary), nil
}

func (l *Local) Analyze(ctx context.Context, name string) (ProbeResult, error) {
	desc, needsInput := l.runner.Analyze(ctx, name, l.agentBinary)
	return ProbeResult{Description: desc, NeedsInput: needsInput}, nil
}
