package registry

import (
	"context"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
)

// WaitForTerminalChannel registers a pending rendezvous for channelId and
// blocks until an executor dials back via ResolveTerminalChannel or the
// timeout elapses (spec.md §4.5.3).
func (r *Registry) WaitForTerminalChannel(ctx context.Context, channelID string, timeout time.Duration) (TerminalConn, error) {
	resolve := make(chan TerminalConn, 1)
	timer := time.AfterFunc(timeout, func() { r.expireChannel(channelID) })

	r.channelsMu.Lock()
	r.channels[channelID] = &pendingChannel{resolve: resolve, timer: timer}
	r.channelsMu.Unlock()

	select {
	case conn, ok := <-resolve:
		if !ok || conn == nil {
			return nil, domain.New(domain.ErrRPCTimeout, "terminal channel dial timed out: "+channelID)
		}
		return conn, nil
	case <-ctx.Done():
		r.channelsMu.Lock()
		delete(r.channels, channelID)
		r.channelsMu.Unlock()
		timer.Stop()
		return nil, ctx.Err()
	}
}

func (r *Registry) expireChannel(channelID string) {
	r.channelsMu.Lock()
	p, ok := r.channels[channelID]
	if ok {
		delete(r.channels, channelID)
	}
	r.channelsMu.Unlock()
	if ok {
		p.resolve <- nil
	}
}

// ResolveTerminalChannel fulfils a pending WaitForTerminalChannel call with
// conn. A late or orphan dial (no matching pending rendezvous) is refused;
// the caller is expected to close conn with WebSocket close code 1008
// (spec.md §4.5.3).
func (r *Registry) ResolveTerminalChannel(channelID string, conn TerminalConn) error {
	r.channelsMu.Lock()
	p, ok := r.channels[channelID]
	if ok {
		delete(r.channels, channelID)
	}
	r.channelsMu.Unlock()

	if !ok {
		return domain.New(domain.ErrNotFound, "no pending terminal channel: "+channelID)
	}

	p.timer.Stop()
	p.resolve <- conn
	return nil
}
