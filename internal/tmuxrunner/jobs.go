package tmuxrunner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// jobScript is the launcher a job-mode window runs instead of the raw agent
// command (spec.md §4.1 "Jobs"). The prompt lives in its own temp file so it
// can contain arbitrary text without shell-quoting hazards; the first
// invocation reads it verbatim, later invocations tell the agent to continue.
// The loop exits early the moment any invocation's output contains the
// literal <promise>DONE</promise> marker, and cleans up its temp files on
// exit including INT/TERM.
const jobScript = `#!/bin/sh
set -u
trap 'rm -f "$prompt_file" "$marker_file"; exit 0' INT TERM
prompt_file={{.PromptFile}}
marker_file=$(mktemp)
iteration=0
status=0
while [ "$iteration" -lt {{.MaxIterations}} ]; do
  iteration=$((iteration + 1))
  if [ "$iteration" -eq 1 ]; then
    {{.Command}} {{.PromptFlag}} "$(cat "$prompt_file")" 2>&1 | tee "$marker_file"
  else
    {{.Command}} {{.PromptFlag}} "continue working towards the stated goal" 2>&1 | tee "$marker_file"
  fi
  status=$?
  if grep -q '<promise>DONE</promise>' "$marker_file"; then
    break
  fi
  if [ "$status" -ne 0 ]; then
    break
  fi
done
rm -f "$prompt_file" "$marker_file"
exit "$status"
`

var jobScriptTmpl = template.Must(template.New("job").Parse(jobScript))

type jobScriptParams struct {
	Command       string
	PromptFlag    string
	PromptFile    string
	MaxIterations int
}

// CreateJob writes the prompt and a launcher script implementing the job
// loop to temp files and starts the script in a new window
// (spec.md §4.1 "Jobs"). promptFlag is the agent's CLI flag for passing a
// prompt (e.g. "-p"); command must already include any other desired agent
// flags.
func (r *Runner) CreateJob(ctx context.Context, name, command, promptFlag, prompt, cwd string, maxIterations int) error {
	if maxIterations < 1 {
		return domain.New(domain.ErrInvalidArgument, "job_max_iterations must be >= 1")
	}

	dir := filepath.Join(os.TempDir(), "claude-host-jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "creating job temp dir", err)
	}

	promptPath := filepath.Join(dir, fmt.Sprintf("prompt-%s", name))
	if err := os.WriteFile(promptPath, []byte(prompt), 0o600); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "writing job prompt file", err)
	}

	var buf bytes.Buffer
	if err := jobScriptTmpl.Execute(&buf, jobScriptParams{
		Command:       command,
		PromptFlag:    promptFlag,
		PromptFile:    promptPath,
		MaxIterations: maxIterations,
	}); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "rendering job launcher script", err)
	}

	scriptPath := filepath.Join(dir, fmt.Sprintf("launch-%s.sh", name))
	if err := os.WriteFile(scriptPath, buf.Bytes(), 0o700); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "writing job launcher script", err)
	}

	return r.CreateWindow(ctx, name, "sh "+scriptPath, cwd)
}
