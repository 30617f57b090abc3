package richbridge

import (
	"context"
	"sync"

	"github.com/fergusfinn/claude-host/internal/common/logger"
	"github.com/fergusfinn/claude-host/internal/domain"
)

// Bridge owns the set of rich-mode session actors, one per session name.
// ctx bounds the lifetime of every session actor it spawns; it is the
// control plane's own lifetime context, not any single request's.
type Bridge struct {
	ctx     context.Context
	store   Store
	spawner Spawner
	logger  *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Bridge backed by store for durable state and spawner for
// starting agent subprocesses. ctx bounds the lifetime of every session
// actor the bridge creates.
func New(ctx context.Context, store Store, spawner Spawner, log *logger.Logger) *Bridge {
	return &Bridge{ctx: ctx, store: store, spawner: spawner, logger: log, sessions: make(map[string]*session)}
}

func (b *Bridge) sessionFor(name, command string) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[name]
	if !ok {
		s = newSession(b.ctx, name, command, b.store, b.spawner, b.logger)
		b.sessions[name] = s
	}
	return s
}

// Attach installs client as the session's sole socket, dropping any prior
// client, and replays persisted state (spec.md §4.3.2, §4.3.5).
func (b *Bridge) Attach(name, command string, client *Client) {
	b.sessionFor(name, command).AttachClient(client)
}

// Detach removes client if it is still the session's current client.
func (b *Bridge) Detach(name string, client *Client) {
	b.mu.Lock()
	s, ok := b.sessions[name]
	b.mu.Unlock()
	if ok {
		s.DetachClient(client)
	}
}

// Prompt forwards a client prompt to the named session.
func (b *Bridge) Prompt(name, text string) error {
	s, ok := b.lookup(name)
	if !ok {
		return domain.New(domain.ErrNotFound, "no rich session: "+name)
	}
	s.Prompt(text)
	return nil
}

// Interrupt forwards a client interrupt to the named session.
func (b *Bridge) Interrupt(name string) error {
	s, ok := b.lookup(name)
	if !ok {
		return domain.New(domain.ErrNotFound, "no rich session: "+name)
	}
	s.Interrupt()
	return nil
}

// Restart forwards a client restart to the named session.
func (b *Bridge) Restart(name string) error {
	s, ok := b.lookup(name)
	if !ok {
		return domain.New(domain.ErrNotFound, "no rich session: "+name)
	}
	s.Restart()
	return nil
}

func (b *Bridge) lookup(name string) (*session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[name]
	return s, ok
}

// Delete signals any running subprocess, removes the durable record, and
// discards the session actor (spec.md §4.3.4 "On delete").
func (b *Bridge) Delete(name string) {
	b.mu.Lock()
	s, ok := b.sessions[name]
	delete(b.sessions, name)
	b.mu.Unlock()
	if ok {
		s.Close()
	}
}
