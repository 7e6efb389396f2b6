package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/core"
)

// ChannelAdapter implements adapter.SpawnAdapter by round-tripping every
// spawn request through a RequestSpawn/ModelResult message pair instead
// of calling anything in-process. It is what makes the orchestrator
// running inside a Manager's goroutine "share no mutable state with the
// host": the only thing crossing the boundary is these messages.
type ChannelAdapter struct {
	requests chan RequestSpawn

	mu      sync.Mutex
	pending map[string]chan ModelResult
	closed  bool
}

// NewChannelAdapter creates a ChannelAdapter. requestBuf sizes the
// outbound request channel; 0 is a safe default for single-task runs.
func NewChannelAdapter(requestBuf int) *ChannelAdapter {
	return &ChannelAdapter{
		requests: make(chan RequestSpawn, requestBuf),
		pending:  make(map[string]chan ModelResult),
	}
}

// Requests is the channel the host-side loop drains.
func (a *ChannelAdapter) Requests() <-chan RequestSpawn {
	return a.requests
}

// Resolve delivers a ModelResult to the Spawn call awaiting it. A
// ModelResult whose ID has no waiter (already resolved, or the worker
// gave up) is silently dropped.
func (a *ChannelAdapter) Resolve(result ModelResult) {
	a.mu.Lock()
	ch, ok := a.pending[result.ID]
	if ok {
		delete(a.pending, result.ID)
	}
	a.mu.Unlock()

	if ok {
		ch <- result
	}
}

// CloseRequests signals that no further requests will be sent, so the
// host-side drain loop can exit its range over Requests().
func (a *ChannelAdapter) CloseRequests() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.requests)
	}
}

// Spawn sends a RequestSpawn and blocks until the matching ModelResult
// arrives or ctx is canceled.
func (a *ChannelAdapter) Spawn(ctx context.Context, args adapter.SpawnArgs) (adapter.SpawnResult, error) {
	// A requestSpawn correlation id has no parent/depth/agent semantics the
	// way a run id does, so it borrows uuid's entropy instead of
	// registry.MintRunID's name-prefixed scheme.
	id := "req_" + uuid.NewString()

	reply := make(chan ModelResult, 1)
	a.mu.Lock()
	a.pending[id] = reply
	a.mu.Unlock()

	select {
	case a.requests <- RequestSpawn{ID: id, AgentName: args.AgentName, Prompt: args.Prompt, Input: args.Input}:
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, id)
		a.mu.Unlock()
		return adapter.SpawnResult{}, core.NewFrameworkError("worker.ChannelAdapter.Spawn", "worker", core.ErrWorkerError).WithID(id)
	}

	select {
	case result := <-reply:
		if result.Err != nil {
			return adapter.SpawnResult{}, result.Err
		}
		return adapter.SpawnResult{RunID: id, Output: result.Output}, nil
	case <-ctx.Done():
		return adapter.SpawnResult{}, core.NewFrameworkError("worker.ChannelAdapter.Spawn", "worker", core.ErrWorkerError).WithID(id)
	}
}
