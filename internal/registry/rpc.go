package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

// Call sends a control-to-executor RPC and waits for the matching response
// or a 30 s timeout, whichever comes first (spec.md §4.5.2). Timeouts are
// not retried at this layer.
func (r *Registry) Call(ctx context.Context, executorID, op string, params interface{}) (json.RawMessage, error) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return nil, domain.New(domain.ErrExecutorOffline, "executor not connected: "+executorID)
	}

	id := newRPCID()
	frame, err := wsproto.NewRequest(id, op, params)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidArgument, "encoding rpc params", err)
	}

	resolve := make(chan *wsproto.Frame, 1)
	timer := time.AfterFunc(rpcTimeout, func() { r.timeoutRPC(ex, id) })

	ex.mu.Lock()
	ex.pendings[id] = &pendingRPC{resolve: resolve, timer: timer}
	ex.mu.Unlock()

	if err := ex.conn.WriteFrame(frame); err != nil {
		ex.mu.Lock()
		delete(ex.pendings, id)
		ex.mu.Unlock()
		timer.Stop()
		return nil, domain.Wrap(domain.ErrIOFailure, "writing rpc frame", err)
	}

	select {
	case resp, ok := <-resolve:
		if !ok {
			return nil, domain.New(domain.ErrExecutorOffline, "executor disconnected mid-call")
		}
		if resp == nil {
			return nil, domain.New(domain.ErrRPCTimeout, "rpc timed out: "+op)
		}
		if resp.OK != nil && !*resp.OK {
			return nil, domain.New(domain.ErrIOFailure, resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		ex.mu.Lock()
		delete(ex.pendings, id)
		ex.mu.Unlock()
		timer.Stop()
		return nil, ctx.Err()
	}
}

// Send writes a one-way control frame to an executor without waiting for a
// response. Attach ops (spec.md §4.5.3) use this: the executor splices the
// new channel into WaitForTerminalChannel's rendezvous instead of answering
// the request frame, so waiting on Call would always time out.
func (r *Registry) Send(executorID, op string, params interface{}) error {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return domain.New(domain.ErrExecutorOffline, "executor not connected: "+executorID)
	}

	frame, err := wsproto.NewRequest(newRPCID(), op, params)
	if err != nil {
		return domain.Wrap(domain.ErrInvalidArgument, "encoding rpc params", err)
	}
	if err := ex.conn.WriteFrame(frame); err != nil {
		return domain.Wrap(domain.ErrIOFailure, "writing rpc frame", err)
	}
	return nil
}

func (r *Registry) timeoutRPC(ex *connectedExecutor, id string) {
	ex.mu.Lock()
	p, ok := ex.pendings[id]
	if ok {
		delete(ex.pendings, id)
	}
	ex.mu.Unlock()
	if ok {
		p.resolve <- nil
	}
}

// HandleResponse resolves the pending RPC matching frame.ID, if any. A
// response with an unknown id is silently dropped (spec.md §4.5.2).
func (r *Registry) HandleResponse(executorID string, frame *wsproto.Frame) {
	r.mu.Lock()
	ex, ok := r.executors[executorID]
	r.mu.Unlock()
	if !ok {
		return
	}

	ex.mu.Lock()
	p, ok := ex.pendings[frame.ID]
	if ok {
		delete(ex.pendings, frame.ID)
	}
	ex.mu.Unlock()
	if !ok {
		return
	}

	p.timer.Stop()
	p.resolve <- frame
}
