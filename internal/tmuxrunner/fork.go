package tmuxrunner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// ForkHooks maps an agent's base command token to a hook script path the
// Runner should invoke to compute the forked command (spec.md §4.1
// "Forking"). An empty path for a listed token means "no hook file, use the
// built-in agent-forking rule".
type ForkHooks map[string]string

// forkPollInterval and forkPollTimeout bound the async wait for a newly
// created agent session file after a built-in agent fork.
const (
	forkPollInterval = 500 * time.Millisecond
	forkPollTimeout  = 30 * time.Second
)

// Fork creates a new window derived from an existing one (spec.md §4.1
// "Forking"). sourceCwd and sourceCommand are the stored attributes of the
// source session; hooks resolves fork behavior per base command token.
func (r *Runner) Fork(ctx context.Context, sourceName, newName, sourceCwd, sourceCommand string, hooks ForkHooks) error {
	baseToken := baseCommandToken(sourceCommand)
	resolvedCommand, isAgentFork, err := r.resolveForkCommand(ctx, sourceName, sourceCwd, sourceCommand, baseToken, hooks)
	if err != nil {
		return err
	}

	if err := r.CreateBlankWindow(ctx, newName, sourceCwd); err != nil {
		return err
	}
	if err := r.SendKeys(ctx, newName, resolvedCommand); err != nil {
		return err
	}

	if isAgentFork {
		go r.pollForkedAgentSessionID(newName)
	}
	return nil
}

func baseCommandToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[0])
}

// resolveForkCommand implements the hook / built-in / fallback decision tree.
// The second return value reports whether the built-in agent-forking rule
// was used, which gates the async session-id poll.
func (r *Runner) resolveForkCommand(ctx context.Context, sourceName, sourceCwd, sourceCommand, baseToken string, hooks ForkHooks) (string, bool, error) {
	hookPath, listed := hooks[baseToken]
	if !listed {
		return sourceCommand, false, nil
	}

	if hookPath != "" {
		if _, statErr := os.Stat(hookPath); statErr == nil {
			out, err := r.runForkHook(ctx, hookPath, sourceName, sourceCwd, sourceCommand)
			if err != nil {
				return "", false, err
			}
			if strings.TrimSpace(out) != "" {
				return strings.TrimSpace(out), false, nil
			}
			return sourceCommand, false, nil
		}
	}

	// Hook file absent (or not configured with a path): built-in agent-forking
	// rule. Read the stored agent session id from the source window's
	// environment and produce a resume-with-fork invocation.
	sessionID, err := r.WindowEnv(ctx, sourceName, "AGENT_SESSION_ID")
	if err != nil || sessionID == "" {
		return sourceCommand, false, nil
	}
	return baseToken + " --resume " + sessionID + " --fork-session", true, nil
}

func (r *Runner) runForkHook(ctx context.Context, hookPath, sourceName, sourceCwd, sourceCommand string) (string, error) {
	hookCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(hookCtx, hookPath)
	cmd.Env = append(os.Environ(),
		"SOURCE_SESSION="+sourceName,
		"SOURCE_CWD="+sourceCwd,
		"SOURCE_COMMAND="+sourceCommand,
	)
	out, err := cmd.Output()
	if err != nil {
		return "", domain.Wrap(domain.ErrSpawnFailure, "running fork hook", err)
	}
	return string(out), nil
}

// pollForkedAgentSessionID polls the agent's on-disk project directory for a
// newly created session file and, on first appearance, writes its id back
// into the forked window's environment (spec.md §4.1 "Forking"). Best
// effort: logged and dropped on timeout or tmux failure, never surfaced to
// the caller since Fork has already returned.
func (r *Runner) pollForkedAgentSessionID(windowName string) {
	if r.agentDir == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), forkPollTimeout)
	defer cancel()

	seen := existingSessionFiles(r.agentDir)
	ticker := time.NewTicker(forkPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := os.ReadDir(r.agentDir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if seen[e.Name()] {
					continue
				}
				id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
				_, _ = r.run(ctx, "set-environment", "-t", r.target(windowName), "AGENT_SESSION_ID", id)
				return
			}
		}
	}
}

func existingSessionFiles(dir string) map[string]bool {
	seen := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seen
	}
	for _, e := range entries {
		seen[e.Name()] = true
	}
	return seen
}
