// Package executor provides the polymorphic facade over a session's
// execution substrate: the control plane's own tmux windows (Local) or a
// remote registered executor reached over its control channel (Remote)
// (spec.md §4.4, component C4).
package executor

import "context"

// ForkParams carries the resolved source attributes an executor needs to
// fork a window (spec.md §4.1 "Forking", §4.6 "fork").
type ForkParams struct {
	SourceName    string
	NewName       string
	SourceCommand string
	SourceCwd     string
	ForkHooks     map[string]string
}

// ProbeResult is what Summarize/Analyze report (spec.md §4.1 "Analyze /
// summarize").
type ProbeResult struct {
	Description string
	NeedsInput  bool
}

// WindowInfo mirrors tmuxrunner.WindowInfo for executor-agnostic listing.
type WindowInfo struct {
	Name         string
	Alive        bool
	LastActivity int64
}

// Interface is the set of operations SessionManager drives without caring
// whether the underlying substrate is local tmux or a remote executor
// (spec.md §4.4).
type Interface interface {
	CreateSession(ctx context.Context, name, command, cwd string) error
	CreateRichSession(ctx context.Context, name, command, cwd string) error
	CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error
	DeleteSession(ctx context.Context, name string) error
	DeleteRichSession(ctx context.Context, name string) error
	Fork(ctx context.Context, params ForkParams) error
	Cwd(ctx context.Context, name string) (string, error)
	ListSessions(ctx context.Context) ([]WindowInfo, error)
	SnapshotSession(ctx context.Context, name string) (string, error)
	SnapshotRichSession(ctx context.Context, name string) (string, error)
	Summarize(ctx context.Context, name string) (string, error)
	Analyze(ctx context.Context, name string) (ProbeResult, error)
}

// Resolver maps an executor id to the Interface that serves it
// (spec.md §4.6 "pick the executor").
type Resolver interface {
	Resolve(executorID string) (Interface, bool)
}
