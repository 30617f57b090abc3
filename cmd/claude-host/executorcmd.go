package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/common/config"
	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/fergusfinn/claude-host/internal/executoragent"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/internal/terminalbridge"
	"github.com/fergusfinn/claude-host/internal/tmuxrunner"
)

// runExecutor wires a local TmuxRunner and dials a control plane with it,
// per spec.md §6 "executor --url <ws-url> --token <t> ...".
func runExecutor(args []string) int {
	fs := flag.NewFlagSet("executor", flag.ContinueOnError)
	url := fs.String("url", "", "control plane WebSocket URL, e.g. wss://host/ws/executor/control")
	token := fs.String("token", "", "executor token (chk_...) minted by createExecutorKey")
	id := fs.String("id", "", "executor id; defaults to exec-<hostname> if empty")
	name := fs.String("name", "", "display name for this executor")
	labelsCSV := fs.String("labels", "", "comma-separated labels")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *url == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "claude-host: executor requires --url and --token")
		return 1
	}

	if _, err := exec.LookPath("tmux"); err != nil {
		fmt.Fprintln(os.Stderr, "claude-host: tmux not found on PATH")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "claude-host: loading configuration: %v\n", err)
		return 1
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "claude-host: initializing logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	executorID := *id
	if executorID == "" {
		hostname, _ := os.Hostname()
		executorID = "exec-" + hostname
	}
	var labels []string
	if *labelsCSV != "" {
		labels = strings.Split(*labelsCSV, ",")
	}

	agentDir := cfg.Agent.Dir
	if agentDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			agentDir = filepath.Join(home, ".claude", "projects")
		}
	}
	runner := tmuxrunner.New(cfg.Agent.TmuxSession, cfg.Agent.Binary, agentDir, log)
	local := executor.NewLocal(runner, cfg.Agent.Binary, tmuxrunner.ForkHooks{})

	terminals := terminalbridge.New(runner.AttachCommand, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rich := richbridge.New(ctx, nil, richbridge.NewExecSpawner(), log)

	agent := executoragent.New(executoragent.Config{
		URL: *url, Token: *token, ExecutorID: executorID, Name: *name, Labels: labels, Version: "",
	}, local, terminals, rich, log)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("executor shutting down")
		cancel()
		agent.Close()
	}()

	if err := agent.Run(ctx); err != nil {
		log.Error("executor run exited with error", zap.Error(err))
		return 1
	}
	return 0
}
