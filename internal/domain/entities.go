package domain

import (
	"regexp"
	"time"
)

// SessionNamePattern is the grammar every session name must satisfy
// (spec.md §3, §6 "Session identifier grammar").
var SessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MaxSessionNameBytes bounds storage, per spec.md §6.
const MaxSessionNameBytes = 128

// ValidSessionName reports whether name satisfies the grammar and length bound.
func ValidSessionName(name string) bool {
	if name == "" || len(name) > MaxSessionNameBytes {
		return false
	}
	return SessionNamePattern.MatchString(name)
}

// Mode distinguishes terminal sessions from rich (agent) sessions.
type Mode string

const (
	ModeTerminal Mode = "terminal"
	ModeRich     Mode = "rich"
)

// LocalExecutorID is the reserved id of the control plane's own executor.
const LocalExecutorID = "local"

// Session is the authoritative metadata row for one session (spec.md §3).
type Session struct {
	Name             string
	OwnerUserID      string
	ExecutorID       string
	Mode             Mode
	Command          string
	Description      string
	ParentName       *string
	CreatedAt        time.Time
	LastActivity     time.Time
	JobPrompt        *string
	JobMaxIterations *int
	NeedsInput       bool
}

// Validate checks the Session invariants from spec.md §3.
func (s *Session) Validate() error {
	if !ValidSessionName(s.Name) {
		return New(ErrInvalidName, "session name must match [A-Za-z0-9_-]+")
	}
	if s.Mode == ModeRich && s.JobPrompt != nil {
		return New(ErrInvalidArgument, "rich sessions cannot carry a job prompt")
	}
	if s.JobPrompt != nil && (s.JobMaxIterations == nil || *s.JobMaxIterations < 1) {
		return New(ErrInvalidArgument, "job sessions require job_max_iterations >= 1")
	}
	return nil
}

// ExecutorStatus is the connectivity state of an ExecutorRecord.
type ExecutorStatus string

const (
	ExecutorOnline  ExecutorStatus = "online"
	ExecutorOffline ExecutorStatus = "offline"
)

// ExecutorRecord describes one connected (or formerly connected) executor.
type ExecutorRecord struct {
	ID          string
	OwnerUserID string
	Name        string
	Labels      []string
	Status      ExecutorStatus
	LastSeen    time.Time
	Version     string
}

// ExecutorKey is a long-lived credential an executor presents to register
// itself (spec.md §3, §4.6, §6 "Executor token format").
type ExecutorKey struct {
	ID          string
	OwnerUserID string
	Name        string
	KeyHash     string
	KeyPrefix   string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	LastUsed    *time.Time
	Revoked     bool
}

// ConfigKV is one per-user configuration entry (spec.md §3, §6).
type ConfigKV struct {
	OwnerUserID string
	Key         string
	Value       string
}

// Reserved configuration keys recognized by the system (spec.md §6).
const (
	ConfigKeyDefaultCommand = "defaultCommand"
	ConfigKeyMode           = "mode"
	ConfigKeyTheme          = "theme"
	ConfigKeyFont           = "font"
	ConfigKeyRichFont       = "richFont"
	ConfigKeyPrefixTimeout  = "prefixTimeout"
	ConfigKeyShowHints      = "showHints"
	ConfigKeyForkHooks      = "forkHooks"
	ConfigKeyShortcuts      = "shortcuts"
)

// SessionLiveness is what an executor reports for one session in a heartbeat
// (spec.md §4.5.1, §4.6 adoptOrphanedSessions).
type SessionLiveness struct {
	Name         string `json:"name"`
	Alive        bool   `json:"alive"`
	LastActivity int64  `json:"last_activity"`
}
