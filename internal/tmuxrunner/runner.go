// Package tmuxrunner is the sole module that invokes the tmux binary
// (spec.md §4.1, component C1). Every window the control plane manages lives
// inside one shared tmux session so that windows can be addressed by name
// (tmux session names are not otherwise meaningful to the control plane).
package tmuxrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
	"go.uber.org/zap"
)

// InitialCols and InitialRows are the geometry new windows open at; clients
// resize on attach (spec.md §4.1 "Initial geometry").
const (
	InitialCols = 200
	InitialRows = 50
)

var (
	errNoServer        = errors.New("no tmux server running")
	errSessionNotFound  = errors.New("session not found")
)

// Runner wraps tmux operations for one shared tmux session.
type Runner struct {
	sessionName string
	agentBinary string // first-token command name that gets a minted session id
	agentDir    string // directory the agent writes its own session records into
	logger      *logger.Logger
}

// New creates a Runner bound to the given shared tmux session name.
// agentBinary is the first whitespace-delimited command token that identifies
// an agent invocation (spec.md §4.1 "Agent session id"); agentDir is where the
// agent writes its own project/session files, used by fork polling (fork.go).
func New(sessionName, agentBinary, agentDir string, log *logger.Logger) *Runner {
	return &Runner{
		sessionName: sessionName,
		agentBinary: agentBinary,
		agentDir:    agentDir,
		logger:      log.WithFields(zap.String("component", "tmuxrunner")),
	}
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", r.wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runner) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)
	switch {
	case strings.Contains(stderr, "no server running"), strings.Contains(stderr, "error connecting to"):
		return errNoServer
	case strings.Contains(stderr, "can't find"), strings.Contains(stderr, "session not found"):
		return errSessionNotFound
	case stderr != "":
		return fmt.Errorf("tmux %s: %s", firstArg(args), stderr)
	default:
		return fmt.Errorf("tmux %s: %w", firstArg(args), err)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (r *Runner) target(name string) string {
	return r.sessionName + ":" + name
}

// windowExists reports whether a window with the given name exists in the
// shared session. A missing tmux server counts as "does not exist".
func (r *Runner) windowExists(ctx context.Context, name string) (bool, error) {
	_, err := r.run(ctx, "list-windows", "-t", r.sessionName, "-F", "#{window_name}", "-f", fmt.Sprintf("#{==:#{window_name},%s}", name))
	if err != nil {
		if errors.Is(err, errNoServer) || errors.Is(err, errSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	names, err := r.run(ctx, "list-windows", "-t", r.sessionName, "-F", "#{window_name}")
	if err != nil {
		if errors.Is(err, errNoServer) || errors.Is(err, errSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, n := range strings.Split(names, "\n") {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *Runner) sessionExists(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, "has-session", "-t", "="+r.sessionName)
	if err != nil {
		if errors.Is(err, errNoServer) || errors.Is(err, errSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateWindow creates a new tmux window running command with the given
// working directory (empty cwd means the control plane's own cwd). If the
// command's first token is the agent binary, a fresh agent session id is
// minted, stored in the window environment, and appended to the command as a
// --session-id flag (spec.md §4.1 "Agent session id").
func (r *Runner) CreateWindow(ctx context.Context, name, command, cwd string) error {
	agentSessionID, resolvedCommand := r.maybeInjectAgentSessionID(command)
	if err := r.createWindow(ctx, name, resolvedCommand, cwd); err != nil {
		return err
	}
	if agentSessionID != "" {
		_, _ = r.run(ctx, "set-environment", "-t", r.target(name), "AGENT_SESSION_ID", agentSessionID)
	}
	return nil
}

// CreateBlankWindow creates a new window running the default shell with no
// initial command and no agent-session-id injection. Fork uses this instead
// of CreateWindow: its resolved command (resolveForkCommand) has already
// made its own session-id decision and must reach the window as-is, sent
// via SendKeys rather than baked into the window's initial process
// (spec.md §4.1 "Forking").
func (r *Runner) CreateBlankWindow(ctx context.Context, name, cwd string) error {
	return r.createWindow(ctx, name, "", cwd)
}

func (r *Runner) createWindow(ctx context.Context, name, command, cwd string) error {
	if !domain.ValidSessionName(name) {
		return domain.New(domain.ErrInvalidName, "invalid window name: "+name)
	}
	exists, err := r.windowExists(ctx, name)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "checking window existence", err)
	}
	if exists {
		return domain.New(domain.ErrAlreadyExists, "window already exists: "+name)
	}

	hasSession, err := r.sessionExists(ctx)
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "checking tmux session", err)
	}

	if !hasSession {
		args := []string{"new-session", "-d", "-s", r.sessionName, "-n", name, "-x", strconv.Itoa(InitialCols), "-y", strconv.Itoa(InitialRows)}
		if cwd != "" {
			args = append(args, "-c", cwd)
		}
		if command != "" {
			args = append(args, command)
		}
		if _, err := r.run(ctx, args...); err != nil {
			return domain.Wrap(domain.ErrSpawnFailure, "creating tmux session", err)
		}
	} else {
		args := []string{"new-window", "-t", r.sessionName, "-n", name, "-d"}
		if cwd != "" {
			args = append(args, "-c", cwd)
		}
		if command != "" {
			args = append(args, command)
		}
		if _, err := r.run(ctx, args...); err != nil {
			return domain.Wrap(domain.ErrSpawnFailure, "creating tmux window", err)
		}
		_, _ = r.run(ctx, "resize-window", "-t", r.target(name), "-x", strconv.Itoa(InitialCols), "-y", strconv.Itoa(InitialRows))
	}
	return nil
}

// maybeInjectAgentSessionID mints a 128-bit identifier and appends a
// --session-id flag when command's first token matches the configured agent
// binary. Returns ("", command) when no injection applies.
func (r *Runner) maybeInjectAgentSessionID(command string) (string, string) {
	if r.agentBinary == "" {
		return "", command
	}
	fields := strings.Fields(command)
	if len(fields) == 0 || fields[0] != r.agentBinary {
		return "", command
	}
	id := uuid.New().String()
	return id, command + " --session-id " + id
}

// DeleteWindow kills a window, tolerating the case where it's already gone.
func (r *Runner) DeleteWindow(ctx context.Context, name string) error {
	_, err := r.run(ctx, "kill-window", "-t", r.target(name))
	if err != nil && !errors.Is(err, errNoServer) && !errors.Is(err, errSessionNotFound) {
		return domain.Wrap(domain.ErrIOFailure, "killing window", err)
	}
	return nil
}

// WindowInfo describes one window's liveness as reported by tmux.
type WindowInfo struct {
	Name         string
	Alive        bool
	LastActivity time.Time
}

// ListWindows returns liveness info for every window in the shared session.
func (r *Runner) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	out, err := r.run(ctx, "list-windows", "-t", r.sessionName, "-F", "#{window_name}\t#{window_activity}")
	if err != nil {
		if errors.Is(err, errNoServer) || errors.Is(err, errSessionNotFound) {
			return nil, nil
		}
		return nil, domain.Wrap(domain.ErrIOFailure, "listing windows", err)
	}
	if out == "" {
		return nil, nil
	}
	var infos []WindowInfo
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		sec, parseErr := strconv.ParseInt(parts[1], 10, 64)
		info := WindowInfo{Name: parts[0], Alive: true}
		if parseErr == nil {
			info.LastActivity = time.Unix(sec, 0)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CapturePane snapshots the last maxLines of the window's pane text.
func (r *Runner) CapturePane(ctx context.Context, name string, maxLines int) (string, error) {
	out, err := r.run(ctx, "capture-pane", "-t", r.target(name), "-p", "-S", fmt.Sprintf("-%d", maxLines))
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			return "", domain.New(domain.ErrNotFound, "window not found: "+name)
		}
		return "", domain.Wrap(domain.ErrIOFailure, "capturing pane", err)
	}
	return out, nil
}

// PaneActivity returns the window's last-activity timestamp.
func (r *Runner) PaneActivity(ctx context.Context, name string) (time.Time, error) {
	out, err := r.run(ctx, "display-message", "-t", r.target(name), "-p", "#{window_activity}")
	if err != nil {
		return time.Time{}, domain.Wrap(domain.ErrIOFailure, "querying activity", err)
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return time.Time{}, domain.Wrap(domain.ErrIOFailure, "parsing activity timestamp", err)
	}
	return time.Unix(sec, 0), nil
}

// PaneCwd returns the window's current working directory.
func (r *Runner) PaneCwd(ctx context.Context, name string) (string, error) {
	out, err := r.run(ctx, "display-message", "-t", r.target(name), "-p", "#{pane_current_path}")
	if err != nil {
		return "", domain.Wrap(domain.ErrIOFailure, "querying cwd", err)
	}
	return strings.TrimSpace(out), nil
}

// SendKeys sends literal text to the window followed by Enter, with a short
// debounce between paste and Enter to avoid races on slow readers.
func (r *Runner) SendKeys(ctx context.Context, name, text string) error {
	if _, err := r.run(ctx, "send-keys", "-t", r.target(name), "-l", text); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "sending keys", err)
	}
	time.Sleep(100 * time.Millisecond)
	_, err := r.run(ctx, "send-keys", "-t", r.target(name), "Enter")
	if err != nil {
		return domain.Wrap(domain.ErrIOFailure, "sending enter", err)
	}
	return nil
}

// WindowEnv reads a single environment variable tmux stored for the window.
func (r *Runner) WindowEnv(ctx context.Context, name, key string) (string, error) {
	out, err := r.run(ctx, "show-environment", "-t", r.target(name), key)
	if err != nil {
		return "", domain.Wrap(domain.ErrIOFailure, "reading window environment", err)
	}
	if idx := strings.Index(out, "="); idx >= 0 {
		return out[idx+1:], nil
	}
	return "", nil
}

// AttachCommand is the command TerminalBridge runs under a pty to attach a
// browser client to this window (spec.md §4.2).
func (r *Runner) AttachCommand(name string) []string {
	return []string{"tmux", "attach-session", "-t", r.target(name)}
}
