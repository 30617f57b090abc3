package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fergusfinn/claude-host/internal/common/config"
	"github.com/fergusfinn/claude-host/internal/common/httpmw"
	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/executor"
	"github.com/fergusfinn/claude-host/internal/frontdoor"
	"github.com/fergusfinn/claude-host/internal/frontdoor/devauth"
	"github.com/fergusfinn/claude-host/internal/registry"
	"github.com/fergusfinn/claude-host/internal/richbridge"
	"github.com/fergusfinn/claude-host/internal/sessionmanager"
	"github.com/fergusfinn/claude-host/internal/store"
	"github.com/fergusfinn/claude-host/internal/terminalbridge"
	"github.com/fergusfinn/claude-host/internal/tmuxrunner"
)

// runServe wires every component (C1-C7) into one HTTP/WS process and blocks
// until SIGINT/SIGTERM, per spec.md §6.
func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 0, "HTTP/WS listen port (overrides config)")
	if err := fs.Parse(args); err != nil {
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
	if *port != 0 {
		cfg.Server.Port = *port
	}

	if isProductionMode() && os.Getenv("CLAUDE_HOST_DEV_AUTH_SECRET") == "" {
		fmt.Fprintln(os.Stderr, "claude-host: CLAUDE_HOST_DEV_AUTH_SECRET must be set when CLAUDE_HOST_ENV=production")
		return 2
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "claude-host: initializing logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting claude-host control plane")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metaStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Error("opening metadata store", zap.Error(err))
		return 1
	}
	defer metaStore.Close()

	agentDir := cfg.Agent.Dir
	if agentDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			agentDir = filepath.Join(home, ".claude", "projects")
		}
	}
	runner := tmuxrunner.New(cfg.Agent.TmuxSession, cfg.Agent.Binary, agentDir, log)
	local := executor.NewLocal(runner, cfg.Agent.Binary, tmuxrunner.ForkHooks{})

	terminals := terminalbridge.New(runner.AttachCommand, log)
	rich := richbridge.New(ctx, metaStore, richbridge.NewExecSpawner(), log)

	// sessionmanager.New installs its own OnChange/OnHeartbeat callbacks
	// (persisting executor records, adopting orphaned sessions), so the
	// registry itself is constructed with no callback here.
	reg := registry.New(log, nil)
	defer reg.Stop()

	resolver := executor.NewResolver(local, reg)
	manager := sessionmanager.New(metaStore, resolver, reg, log)
	defer manager.Stop()

	principals := devauth.Extractor{Secret: os.Getenv("CLAUDE_HOST_DEV_AUTH_SECRET")}
	server := frontdoor.New(manager, terminals, rich, reg, principals, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(httpmw.RequestLogger(log, "claude-host"))
	server.Routes(engine)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "claude-host"})
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	log.Info("claude-host stopped")
	return 0
}

func isProductionMode() bool {
	env := os.Getenv("CLAUDE_HOST_ENV")
	return env == "production" || env == "prod"
}
