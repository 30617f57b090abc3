// Package config provides configuration management for claude-host.
// It supports loading configuration from environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for claude-host.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig holds HTTP/WS server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// StoreConfig holds the metadata store location.
type StoreConfig struct {
	// Path is the sqlite database file. ":memory:" is accepted for tests,
	// though a temp file is preferred there since :memory: databases are
	// per-connection and the store opens a connection pool.
	Path string `mapstructure:"path"`
}

// ExecutorConfig holds a configured executor token. It is loaded but not
// read by frontdoor: executor-facing WebSocket upgrades are checked against
// the executor-key store instead (spec.md §6, "Executor token format").
type ExecutorConfig struct {
	Token string `mapstructure:"token"`
}

// AgentConfig names the shared tmux session and the agent binary that
// TmuxRunner mints agent session ids for (spec.md §4.1 "Agent session id").
type AgentConfig struct {
	TmuxSession string `mapstructure:"tmuxSession"`
	Binary      string `mapstructure:"binary"`
	Dir         string `mapstructure:"dir"`
}

// TimeoutsConfig holds the timing constants from spec.md §5.
type TimeoutsConfig struct {
	RPCTimeoutSeconds          int `mapstructure:"rpcTimeoutSeconds"`
	HeartbeatTimeoutSeconds    int `mapstructure:"heartbeatTimeoutSeconds"`
	HealthCheckIntervalSeconds int `mapstructure:"healthCheckIntervalSeconds"`
	PendingChannelTimeoutSeconds int `mapstructure:"pendingChannelTimeoutSeconds"`
	ProbeTimeoutSeconds        int `mapstructure:"probeTimeoutSeconds"`
	ForkHookTimeoutSeconds     int `mapstructure:"forkHookTimeoutSeconds"`
	PersistDebounceSeconds     int `mapstructure:"persistDebounceSeconds"`
	AbandonThresholdSeconds    int `mapstructure:"abandonThresholdSeconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// AdminConfig names the admin email used by adoptUnownedResources (spec.md §4.6).
type AdminConfig struct {
	Email string `mapstructure:"email"`
}

// RPCTimeout returns the registry RPC timeout as a duration.
func (t TimeoutsConfig) RPCTimeout() time.Duration {
	return time.Duration(t.RPCTimeoutSeconds) * time.Second
}

// HeartbeatTimeout returns the executor heartbeat timeout as a duration.
func (t TimeoutsConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(t.HeartbeatTimeoutSeconds) * time.Second
}

// HealthCheckInterval returns the registry health-check ticker interval.
func (t TimeoutsConfig) HealthCheckInterval() time.Duration {
	return time.Duration(t.HealthCheckIntervalSeconds) * time.Second
}

// PendingChannelTimeout returns the byte-channel rendezvous timeout.
func (t TimeoutsConfig) PendingChannelTimeout() time.Duration {
	return time.Duration(t.PendingChannelTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the summarize/analyze subprocess timeout.
func (t TimeoutsConfig) ProbeTimeout() time.Duration {
	return time.Duration(t.ProbeTimeoutSeconds) * time.Second
}

// ForkHookTimeout returns the fork-hook invocation timeout.
func (t TimeoutsConfig) ForkHookTimeout() time.Duration {
	return time.Duration(t.ForkHookTimeoutSeconds) * time.Second
}

// PersistDebounce returns the rich-session persistence debounce interval.
func (t TimeoutsConfig) PersistDebounce() time.Duration {
	return time.Duration(t.PersistDebounceSeconds) * time.Second
}

// AbandonThreshold returns how long an offline executor's sessions survive.
func (t TimeoutsConfig) AbandonThreshold() time.Duration {
	return time.Duration(t.AbandonThresholdSeconds) * time.Second
}

// ReadTimeoutDuration returns the HTTP read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the HTTP write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// detectDefaultLogFormat returns "json" in production, "text" for local use.
func detectDefaultLogFormat() string {
	if env := os.Getenv("CLAUDE_HOST_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	v.SetDefault("store.path", "./claude-host.db")

	v.SetDefault("executor.token", "")

	v.SetDefault("agent.tmuxSession", "claude-host")
	v.SetDefault("agent.binary", "claude")
	v.SetDefault("agent.dir", "")

	v.SetDefault("timeouts.rpcTimeoutSeconds", 30)
	v.SetDefault("timeouts.heartbeatTimeoutSeconds", 45)
	v.SetDefault("timeouts.healthCheckIntervalSeconds", 15)
	v.SetDefault("timeouts.pendingChannelTimeoutSeconds", 10)
	v.SetDefault("timeouts.probeTimeoutSeconds", 60)
	v.SetDefault("timeouts.forkHookTimeoutSeconds", 5)
	v.SetDefault("timeouts.persistDebounceSeconds", 2)
	v.SetDefault("timeouts.abandonThresholdSeconds", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("admin.email", "")
}

// Load reads configuration from environment variables and defaults.
// Environment variables use the prefix CLAUDE_HOST_ with snake_case naming,
// e.g. CLAUDE_HOST_EXECUTOR_TOKEN, CLAUDE_HOST_SERVER_PORT.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLAUDE_HOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Store.Path == "" {
		errs = append(errs, "store.path must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
