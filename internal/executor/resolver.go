package executor

import (
	"sync"

	"github.com/fergusfinn/claude-host/internal/registry"
)

// LocalExecutorID is the reserved executor id referring to the control
// plane's own tmux host (spec.md §4.4 "pick the executor").
const LocalExecutorID = "local"

// DefaultResolver resolves LocalExecutorID to a fixed Local facade and any
// other id to a Remote facade backed by reg, provided that executor is
// currently online.
type DefaultResolver struct {
	local    *Local
	registry *registry.Registry

	mu      sync.Mutex
	remotes map[string]*Remote
}

// NewResolver builds a Resolver serving local out of the LocalExecutorID
// slot and every other id as a registry-backed Remote.
func NewResolver(local *Local, reg *registry.Registry) *DefaultResolver {
	return &DefaultResolver{local: local, registry: reg, remotes: make(map[string]*Remote)}
}

func (d *DefaultResolver) Resolve(executorID string) (Interface, bool) {
	if executorID == "" || executorID == LocalExecutorID {
		return d.local, true
	}
	if !d.registry.IsOnline(executorID) {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	rm, ok := d.remotes[executorID]
	if !ok {
		rm = NewRemote(executorID, d.registry)
		d.remotes[executorID] = rm
	}
	return rm, true
}
