// Package orchestrator is the heart of the system: bounded recursive
// spawning of subagents under cryptographic supervision. It owns a
// Registry, a Trace, and the supervisor secret for exactly one run, and
// drives the fan-out program that proves depth-3 execution works
// end-to-end.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/crypto"
	"github.com/kestrel-run/recursion-engine/gate"
	"github.com/kestrel-run/recursion-engine/registry"
	"github.com/kestrel-run/recursion-engine/trace"
)

// RuntimeMode reports whether execute dispatched to a real adapter/host
// capability or fell back to the built-in simulation.
type RuntimeMode string

const (
	RuntimeModeUnset     RuntimeMode = ""
	RuntimeModeReal      RuntimeMode = core.RuntimeModeReal
	RuntimeModeSimulated RuntimeMode = core.RuntimeModeSimulated
)

// FrontierProof is the verified nonce-based proof recorded for every
// spawn at the depth frontier (maxDepth-1).
type FrontierProof struct {
	RunID     string
	Nonce     string
	HashProof string
}

// Result is what Run and SupervisedSpawn return.
type Result struct {
	OK         bool
	Reason     string
	Output     map[string]interface{}
	RunID      string
	Attempts   int
}

// Options configures a new Orchestrator.
type Options struct {
	Config     *core.Config
	Secret     []byte
	Adapter    adapter.SpawnAdapter // worker-mode / LLM-backed adapter, may be nil
	Capability adapter.HostCapabilityFunc // host "runSubagent" capability, may be nil
	Prompts    *adapter.PromptBuilder
	Logger     core.Logger
	Telemetry  core.Telemetry

	// Trace, when set, is used instead of a freshly created one — the
	// Entry uses this to append preflight events before the orchestrator's
	// own events, so the merged export is ordered correctly without a
	// separate splice step.
	Trace *trace.Trace
	// Registry, when set, is used instead of a freshly created one.
	Registry *registry.Registry
	// Store, when set, mirrors every spawn/return to Redis for
	// cross-process audit. Optional; a nil Store disables persistence.
	Store *registry.RedisStore
}

// Orchestrator drives one run. It is never shared across runs.
type Orchestrator struct {
	config     *core.Config
	secret     []byte
	registry   *registry.Registry
	trace      *trace.Trace
	spawnAdapter adapter.SpawnAdapter
	capability adapter.HostCapabilityFunc
	prompts    *adapter.PromptBuilder
	logger     core.Logger
	telemetry  core.Telemetry
	store      *registry.RedisStore

	runtimeMode       RuntimeMode
	simulationWarned  bool
	frontierProofs    []FrontierProof
}

// New creates an Orchestrator with a fresh Registry and Trace.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	reg := opts.Registry
	if reg == nil {
		reg = registry.New()
	}
	tr := opts.Trace
	if tr == nil {
		tr = trace.New(opts.Secret)
	}

	return &Orchestrator{
		config:       opts.Config,
		secret:       opts.Secret,
		registry:     reg,
		trace:        tr,
		spawnAdapter: opts.Adapter,
		capability:   opts.Capability,
		prompts:      opts.Prompts,
		logger:       logger,
		telemetry:    telemetry,
		store:        opts.Store,
	}
}

// Registry exposes the run registry for the validator/asleep detector.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Trace exposes the signed trace for the validator/asleep detector.
func (o *Orchestrator) Trace() *trace.Trace { return o.trace }

// RuntimeMode reports whether execution dispatched to a real adapter or
// simulated.
func (o *Orchestrator) RuntimeMode() RuntimeMode { return o.runtimeMode }

// FrontierProofs returns every verified depth-frontier proof recorded
// this run.
func (o *Orchestrator) FrontierProofs() []FrontierProof {
	out := make([]FrontierProof, len(o.frontierProofs))
	copy(out, o.frontierProofs)
	return out
}

// frontierDepth is maxDepth-1, the deepest permitted spawn depth.
func (o *Orchestrator) frontierDepth() int {
	return o.config.MaxDepth - 1
}

// spawnGate refuses a spawn that would violate the depth or spawn
// budget, recording a signed "limit" event either way.
func (o *Orchestrator) spawnGate(ctx context.Context, parentRunID string, depth int) error {
	if depth >= o.config.MaxDepth {
		if _, err := o.trace.AddEvent(trace.UnsignedEvent{
			Kind: core.EventLimit, Depth: depth, ParentRunID: parentRunID, Note: "depth_limit",
		}); err != nil {
			return err
		}
		return core.NewFrameworkError("orchestrator.spawnGate", "orchestrator", core.ErrDepthLimit)
	}
	if o.registry.TotalSpawns() >= o.config.MaxSpawns {
		if _, err := o.trace.AddEvent(trace.UnsignedEvent{
			Kind: core.EventLimit, Depth: depth, ParentRunID: parentRunID, Note: "spawn_limit",
		}); err != nil {
			return err
		}
		return core.NewFrameworkError("orchestrator.spawnGate", "orchestrator", core.ErrSpawnLimit)
	}
	return nil
}

// SpawnRequest is the input to SupervisedSpawn.
type SpawnRequest struct {
	ParentRunID     string
	AgentName       string
	Depth           int
	Input           map[string]interface{}
	Task            string
	RequiredKeys    []string
	MinNumericCount int
}

// SupervisedSpawn runs the full spawn lifecycle for one subagent request:
// gate, mint, (frontier nonce injection), register, execute-with-retry,
// register return, record frontier proof.
func (o *Orchestrator) SupervisedSpawn(ctx context.Context, req SpawnRequest) Result {
	ctx, span := o.telemetry.StartSpan(ctx, "orchestrator.supervised_spawn")
	defer span.End()
	span.SetAttribute("agent_name", req.AgentName)
	span.SetAttribute("depth", req.Depth)
	span.SetAttribute("parent_run_id", req.ParentRunID)
	o.telemetry.RecordMetric("engine.spawn.attempts", 1, map[string]string{"agent": req.AgentName})

	if err := o.spawnGate(ctx, req.ParentRunID, req.Depth); err != nil {
		reason := "depth_limit"
		if core.IsBudgetError(err) {
			reason = budgetReason(err)
		}
		span.RecordError(err)
		o.telemetry.RecordMetric("engine.spawn.gate_rejections", 1, map[string]string{"agent": req.AgentName, "reason": reason})
		return Result{OK: false, Reason: reason}
	}

	runID, err := registry.MintRunID(req.AgentName)
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("mint_run_id_failed: %v", err)}
	}

	input := cloneInput(req.Input)
	isFrontier := req.Depth == o.frontierDepth()
	var nonce string
	if isFrontier {
		nonce, err = randomNonceHex()
		if err != nil {
			return Result{OK: false, Reason: fmt.Sprintf("nonce_generation_failed: %v", err)}
		}
		input["nonce"] = nonce
		input["runId"] = runID
	}

	inputHash, err := crypto.HashHex(input)
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("input_hash_failed: %v", err)}
	}

	if err := o.registry.RegisterSpawn(registry.SpawnInfo{
		RunID: runID, ParentRunID: req.ParentRunID, AgentName: req.AgentName,
		Depth: req.Depth, InputHash: inputHash, Nonce: nonce,
	}); err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("registry_spawn_failed: %v", err)}
	}
	if o.store != nil {
		if run, ok := o.registry.GetRun(runID); ok {
			o.store.PersistSpawn(ctx, run)
		}
	}

	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventSpawn, Depth: req.Depth, AgentName: req.AgentName,
		ParentRunID: req.ParentRunID, ChildRunID: runID, InputHash: inputHash,
	}); err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("trace_append_failed: %v", err)}
	}

	g := gate.Gate{RequiredKeys: req.RequiredKeys, MinNumericCount: req.MinNumericCount}
	if isFrontier {
		g.FrontierHashProof = frontierHashProof(nonce, runID)
	}

	if o.config.StrictMode && !o.hasRealCapability() {
		if _, err := o.trace.AddEvent(trace.UnsignedEvent{
			Kind: core.EventLimit, Depth: req.Depth, AgentName: req.AgentName,
			ParentRunID: req.ParentRunID, ChildRunID: runID, Note: "tool_missing_strict",
		}); err != nil {
			return Result{OK: false, Reason: fmt.Sprintf("trace_append_failed: %v", err)}
		}
		return Result{OK: false, Reason: "tool_missing_strict", RunID: runID}
	}

	role := adapter.RoleForDepth(req.Depth, o.frontierDepth())
	prompt, promptErr := o.buildPrompt(role, req.AgentName, req.Depth, req.Task, nonce, runID)
	if promptErr != nil {
		return Result{OK: false, Reason: fmt.Sprintf("prompt_build_failed: %v", promptErr)}
	}

	retryResult := gate.RunWithRetry(gate.RunWithRetryOptions{
		MaxAttempts: 2,
		AttemptFn: func(attempt int) (interface{}, error) {
			return o.execute(ctx, req.AgentName, input, prompt, isFrontier)
		},
		GateFn: func(output interface{}) string {
			reason := g.Validate(output)
			if reason != "" {
				if _, err := o.trace.AddEvent(trace.UnsignedEvent{
					Kind: core.EventQualityGateFail, Depth: req.Depth, AgentName: req.AgentName,
					ChildRunID: runID, Note: reason,
				}); err != nil {
					o.logger.Warn("orchestrator: failed to append quality_gate_fail event", map[string]interface{}{"error": err.Error()})
				}
				o.telemetry.RecordMetric("engine.gate.failures", 1, map[string]string{"agent": req.AgentName, "reason": reason})
			} else {
				o.telemetry.RecordMetric("engine.gate.passes", 1, map[string]string{"agent": req.AgentName})
			}
			return reason
		},
	})

	if !retryResult.OK {
		span.RecordError(core.NewFrameworkError("orchestrator.SupervisedSpawn", "orchestrator", core.ErrQualityGateFailed))
		return Result{OK: false, Reason: "quality_gate_failed", Attempts: retryResult.Attempts}
	}

	output, _ := retryResult.Output.(map[string]interface{})
	outputHash, err := crypto.HashHex(output)
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("output_hash_failed: %v", err)}
	}

	if err := o.registry.RegisterReturn(registry.ReturnInfo{RunID: runID, OutputHash: outputHash}); err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("registry_return_failed: %v", err)}
	}
	if o.store != nil {
		if run, ok := o.registry.GetRun(runID); ok {
			o.store.PersistReturn(ctx, run)
		}
	}

	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventQualityGatePass, Depth: req.Depth, AgentName: req.AgentName, ChildRunID: runID,
	}); err != nil {
		o.logger.Warn("orchestrator: failed to append quality_gate_pass event", map[string]interface{}{"error": err.Error()})
	}

	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventReturn, Depth: req.Depth, AgentName: req.AgentName,
		ParentRunID: req.ParentRunID, ChildRunID: runID, OutputHash: outputHash,
	}); err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("trace_append_failed: %v", err)}
	}

	if isFrontier {
		if hashProof, ok := output["hashProof"].(string); ok {
			o.frontierProofs = append(o.frontierProofs, FrontierProof{RunID: runID, Nonce: nonce, HashProof: hashProof})
			o.telemetry.RecordMetric("engine.frontier.proofs", 1, map[string]string{"agent": req.AgentName})
		}
	}

	o.telemetry.RecordMetric("engine.spawn.returns", 1, map[string]string{"agent": req.AgentName})
	return Result{OK: true, Output: output, RunID: runID, Attempts: retryResult.Attempts}
}

func budgetReason(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case isErr(err, core.ErrDepthLimit):
		return "depth_limit"
	case isErr(err, core.ErrSpawnLimit):
		return "spawn_limit"
	default:
		return "budget_exceeded"
	}
}

func cloneInput(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
