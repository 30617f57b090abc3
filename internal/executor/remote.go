package executor

import (
	"context"
	"encoding/json"

	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// Remote implements Interface by issuing RPCs to a registered executor over
// its control channel (spec.md §4.4 "Remote behavior", §4.5.1).
type Remote struct {
	executorID string
	registry   *registry.Registry
}

// NewRemote creates a Remote executor facade bound to executorID, resolved
// against reg's live control-channel connection at call time.
func NewRemote(executorID string, reg *registry.Registry) *Remote {
	return &Remote{executorID: executorID, registry: reg}
}

func (rm *Remote) call(ctx context.Context, op string, params, result interface{}) error {
	data, err := rm.registry.Call(ctx, rm.executorID, op, params)
	if err != nil {
		return err
	}
	if result == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, result)
}

func (rm *Remote) CreateSession(ctx context.Context, name, command, cwd string) error {
	return rm.call(ctx, wsproto.OpCreateSession, map[string]string{
		"name": name, "command": command, "cwd": cwd,
	}, nil)
}

func (rm *Remote) CreateRichSession(ctx context.Context, name, command, cwd string) error {
	return rm.call(ctx, wsproto.OpCreateRichSession, map[string]string{
		"name": name, "command": command, "cwd": cwd,
	}, nil)
}

func (rm *Remote) CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error {
	return rm.call(ctx, wsproto.OpCreateJob, map[string]interface{}{
		"name": name, "command": command, "prompt_flag": promptFlag,
		"prompt": prompt, "cwd": cwd, "max_iterations": maxIterations,
	}, nil)
}

func (rm *Remote) DeleteSession(ctx context.Context, name string) error {
	return rm.call(ctx, wsproto.OpDeleteSession, map[string]string{"name": name}, nil)
}

func (rm *Remote) DeleteRichSession(ctx context.Context, name string) error {
	return rm.call(ctx, wsproto.OpDeleteRichSession, map[string]string{"name": name}, nil)
}

func (rm *Remote) Fork(ctx context.Context, params ForkParams) error {
	return rm.call(ctx, wsproto.OpForkSession, map[string]interface{}{
		"source_name":    params.SourceName,
		"new_name":       params.NewName,
		"source_command": params.SourceCommand,
		"source_cwd":     params.SourceCwd,
		"fork_hooks":     params.ForkHooks,
	}, nil)
}

func (rm *Remote) Cwd(ctx context.Context, name string) (string, error) {
	var out struct {
		Cwd string `json:"cwd"`
	}
	if err := rm.call(ctx, wsproto.OpSessionCwd, map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.Cwd, nil
}

func (rm *Remote) ListSessions(ctx context.Context) ([]WindowInfo, error) {
	var out struct {
		Sessions []WindowInfo `json:"sessions"`
	}
	if err := rm.call(ctx, wsproto.OpListSessions, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (rm *Remote) SnapshotSession(ctx context.Context, name string) (string, error) {
	var out struct {
		Snapshot string `json:"snapshot"`
	}
	if err := rm.call(ctx, wsproto.OpSnapshotSession, map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.Snapshot, nil
}

func (rm *Remote) SnapshotRichSession(ctx context.Context, name string) (string, error) {
	var out struct {
		Snapshot string `json:"snapshot"`
	}
	if err := rm.call(ctx, wsproto.OpSnapshotRichSession, map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.Snapshot, nil
}

func (rm *Remote) Summarize(ctx context.Context, name string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := rm.call(ctx, wsproto.OpSummarizeSession, map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (rm *Remote) Analyze(ctx context.Context, name string) (ProbeResult, error) {
	var out ProbeResult
	if err := rm.call(ctx, wsproto.OpAnalyzeSession, map[string]string{"name": name}, &out); err != nil {
		return ProbeResult{}, err
	}
	return out, nil
}
