package executoragent

import (
	"context"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// dispatchOp decodes frame.Data for the op frame.Type names and calls the
// matching executor.Local method, mirroring the param/result shapes
// executor.Remote encodes on the control-plane side (spec.md §4.5.1).
func (a *Agent) dispatchOp(ctx context.Context, frame *wsproto.Frame) (interface{}, error) {
	switch frame.Type {
	case wsproto.OpCreateSession, wsproto.OpCreateRichSession:
		var p struct{ Name, Command, Cwd string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		if frame.Type == wsproto.OpCreateRichSession {
			return nil, a.local.CreateRichSession(ctx, p.Name, p.Command, p.Cwd)
		}
		return nil, a.local.CreateSession(ctx, p.Name, p.Command, p.Cwd)

	case wsproto.OpCreateJob:
		var p struct {
			Name          string `json:"name"`
			Command       string `json:"command"`
			PromptFlag    string `json:"prompt_flag"`
			Prompt        string `json:"prompt"`
			Cwd           string `json:"cwd"`
			MaxIterations int    `json:"max_iterations"`
		}
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		return nil, a.local.CreateJob(ctx, p.Name, p.Command, p.PromptFlag, p.Prompt, p.Cwd, p.MaxIterations)

	case wsproto.OpDeleteSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		return nil, a.local.DeleteSession(ctx, p.Name)

	case wsproto.OpDeleteRichSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		return nil, a.local.DeleteRichSession(ctx, p.Name)

	case wsproto.OpForkSession:
		var p struct {
			SourceName    string            `json:"source_name"`
			NewName       string            `json:"new_name"`
			SourceCommand string            `json:"source_command"`
			SourceCwd     string            `json:"source_cwd"`
			ForkHooks     map[string]string `json:"fork_hooks"`
		}
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		return nil, a.local.Fork(ctx, executor.ForkParams{
			SourceName: p.SourceName, NewName: p.NewName,
			SourceCommand: p.SourceCommand, SourceCwd: p.SourceCwd, ForkHooks: p.ForkHooks,
		})

	case wsproto.OpSessionCwd:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		cwd, err := a.local.Cwd(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return struct {
			Cwd string `json:"cwd"`
		}{Cwd: cwd}, nil

	case wsproto.OpListSessions:
		windows, err := a.local.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		return struct {
			Sessions []executor.WindowInfo `json:"sessions"`
		}{Sessions: windows}, nil

	case wsproto.OpSnapshotSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		snap, err := a.local.SnapshotSession(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return struct {
			Snapshot string `json:"snapshot"`
		}{Snapshot: snap}, nil

	case wsproto.OpSnapshotRichSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		snap, err := a.local.SnapshotRichSession(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return struct {
			Snapshot string `json:"snapshot"`
		}{Snapshot: snap}, nil

	case wsproto.OpSummarizeSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		summary, err := a.local.Summarize(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return struct {
			Summary string `json:"summary"`
		}{Summary: summary}, nil

	case wsproto.OpAnalyzeSession:
		var p struct{ Name string }
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		result, err := a.local.Analyze(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return result, nil

	default:
		return nil, domain.New(domain.ErrInvalidArgument, "unknown op: "+frame.Type)
	}
}
