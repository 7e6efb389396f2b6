package worker

import (
	"context"

	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/orchestrator"
	"github.com/kestrel-run/recursion-engine/registry"
	"github.com/kestrel-run/recursion-engine/trace"
)

// HostSpawnFunc is the host's real spawn mechanism (typically wrapping a
// "runSubagent" capability). The Manager calls it once per RequestSpawn
// it receives from the worker goroutine.
type HostSpawnFunc func(ctx context.Context, req RequestSpawn) (map[string]interface{}, error)

// Options configures a Manager run.
type Options struct {
	Task       string
	Config     *core.Config
	Secret     []byte
	HostSpawn  HostSpawnFunc // nil means the host has no spawn mechanism: every request fails
	Prompts    *adapter.PromptBuilder
	Logger     core.Logger
	Telemetry  core.Telemetry
	OnProgress func(Progress)

	// Trace, when set, is used instead of a freshly created one — lets the
	// caller append preflight events before the worker-hosted
	// orchestrator's own events.
	Trace *trace.Trace
	// Store, when set, mirrors every spawn/return to Redis.
	Store *registry.RedisStore
}

// Result is what Manager.Run returns: either the worker's program result
// or a worker_error when the call was abandoned.
type Result struct {
	OK           bool
	Reason       string
	Program      orchestrator.ProgramResult
	Orchestrator *orchestrator.Orchestrator
}

// Manager hosts one orchestrator run inside a goroutine, isolated from
// the caller's state by a ChannelAdapter: the only things the two sides
// exchange are RequestSpawn/ModelResult messages. The one lock is the
// ChannelAdapter's own mutex over its pending-request map, which the
// worker side (Spawn) and the host loop (Resolve) both touch; ordering is
// whatever the message sequence imposes.
type Manager struct{}

// NewManager creates a Manager. It holds no state of its own; each Run
// call owns its own goroutine, channel adapter, and orchestrator.
func NewManager() *Manager {
	return &Manager{}
}

// Run starts the worker goroutine, services RequestSpawn messages with
// opts.HostSpawn until the worker's orchestrator run returns its result
// over an internal channel, and returns the final result. If ctx is canceled before the worker finishes, Run
// returns immediately with {OK:false, Reason:"worker_error"} — the
// worker goroutine is abandoned, matching the "terminate invalidates any
// outstanding requestSpawn" cancellation semantics.
func (m *Manager) Run(ctx context.Context, opts Options) Result {
	chAdapter := NewChannelAdapter(0)

	orch := orchestrator.New(orchestrator.Options{
		Config:    opts.Config,
		Secret:    opts.Secret,
		Adapter:   chAdapter,
		Prompts:   opts.Prompts,
		Logger:    opts.Logger,
		Telemetry: opts.Telemetry,
		Trace:     opts.Trace,
		Store:     opts.Store,
	})

	type outcome struct {
		program orchestrator.ProgramResult
	}
	doneCh := make(chan outcome, 1)

	go func() {
		defer chAdapter.CloseRequests()
		program := orch.Run(ctx, opts.Task)
		doneCh <- outcome{program: program}
	}()

	hostLoopDone := make(chan struct{})
	go func() {
		defer close(hostLoopDone)
		for req := range chAdapter.Requests() {
			if opts.OnProgress != nil {
				opts.OnProgress(Progress{Message: "dispatching " + req.AgentName})
			}
			if opts.HostSpawn == nil {
				chAdapter.Resolve(ModelResult{ID: req.ID, Err: core.NewFrameworkError("worker.Manager.Run", "worker", core.ErrWorkerError).WithID(req.ID)})
				continue
			}
			output, err := opts.HostSpawn(ctx, req)
			chAdapter.Resolve(ModelResult{ID: req.ID, Output: output, Err: err})
		}
	}()

	select {
	case result := <-doneCh:
		<-hostLoopDone
		return Result{OK: result.program.OK, Reason: result.program.Reason, Program: result.program, Orchestrator: orch}
	case <-ctx.Done():
		return Result{OK: false, Reason: "worker_error", Orchestrator: orch}
	}
}
