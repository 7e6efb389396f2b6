// Package engine is the single entrypoint every agentic coding task runs
// through: it resolves configuration, runs preflight, hands the task to
// an Orchestrator (optionally hosted in a worker), validates the
// resulting trace, classifies engagement, and persists a proof artifact
// a separate Guard program later consumes.
package engine

import (
	"context"
	"time"

	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/asleep"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/crypto"
	"github.com/kestrel-run/recursion-engine/orchestrator"
	"github.com/kestrel-run/recursion-engine/registry"
	"github.com/kestrel-run/recursion-engine/trace"
	"github.com/kestrel-run/recursion-engine/validator"
	"github.com/kestrel-run/recursion-engine/worker"
)

// Entry is the single public entrypoint.
type Entry struct {
	Adapter    adapter.SpawnAdapter
	Capability adapter.HostCapabilityFunc
	Prompts    *adapter.PromptBuilder
	Logger     core.Logger
	Telemetry  core.Telemetry
	// Store, when set, mirrors every spawn/return to Redis. Optional.
	Store *registry.RedisStore
}

// NewEntry creates an Entry with no configured spawn mechanism; Run will
// fall back to simulation (non-strict) or fail preflight (strict).
func NewEntry() *Entry {
	return &Entry{}
}

// Result is what Run returns to the host, before exit-code translation.
type Result struct {
	OK           bool
	Reason       string
	ContractMode string
	RuntimeMode  string
	Engagement   asleep.Engagement
	Trace        []trace.Event
	Verification Verification
	Program      orchestrator.ProgramResult
	Artifact     ProofArtifact
	ExitCode     int
}

// Run resolves cfg (DefaultConfig if nil), executes preflight, drives
// the orchestrator's fan-out program, validates the trace, classifies
// engagement, and returns a fully-formed Result. It does not write the
// proof artifact — call WriteProofArtifact with Result.Artifact for
// that, since a host may want to inspect the result before deciding to
// persist it.
func (e *Entry) Run(ctx context.Context, task string, cfg *core.Config) Result {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	logger := e.Logger
	if logger == nil {
		logger = cfg.Logger()
	}

	if cfg.ForceSleep {
		return e.forcedSleepResult(cfg)
	}

	secret, err := crypto.LoadSupervisorSecret(logger)
	if err != nil {
		return Result{OK: false, Reason: "secret_load_failed", ContractMode: cfg.EffectiveContractMode(), ExitCode: exitCodeFor(false, "secret_load_failed", false, false)}
	}

	tr := trace.New(secret)
	preflight := runPreflight(cfg, e.Adapter != nil, e.Capability, tr)
	if !preflight.OK {
		events := tr.Export()
		return Result{
			OK: false, Reason: preflight.Reason, ContractMode: cfg.EffectiveContractMode(),
			Trace: events, ExitCode: exitCodeFor(false, preflight.Reason, false, cfg.ForceSleep),
		}
	}

	var (
		program        orchestrator.ProgramResult
		runtimeMode    orchestrator.RuntimeMode
		registryHandle *registry.Registry
		frontierProofs []orchestrator.FrontierProof
	)

	if cfg.UseWorker {
		result := worker.NewManager().Run(ctx, worker.Options{
			Task: task, Config: cfg, Secret: secret, HostSpawn: e.hostSpawn,
			Prompts: e.Prompts, Logger: logger, Telemetry: e.Telemetry, Trace: tr, Store: e.Store,
		})
		program = result.Program
		if result.Orchestrator != nil {
			runtimeMode = result.Orchestrator.RuntimeMode()
			registryHandle = result.Orchestrator.Registry()
			frontierProofs = result.Orchestrator.FrontierProofs()
		}
	} else {
		orch := orchestrator.New(orchestrator.Options{
			Config: cfg, Secret: secret, Adapter: e.Adapter, Capability: e.Capability,
			Prompts: e.Prompts, Logger: logger, Telemetry: e.Telemetry, Trace: tr, Store: e.Store,
		})
		program = orch.Run(ctx, task)
		runtimeMode = orch.RuntimeMode()
		registryHandle = orch.Registry()
		frontierProofs = orch.FrontierProofs()
	}

	events := tr.Export()

	traceVerification := validator.Validate(secret, registryHandle, events)
	verification := buildVerification(traceVerification, frontierProofs)

	engagement := asleep.Evaluate(cfg, string(runtimeMode), verification.OK, events)

	artifact, err := buildProofArtifact(
		program.OK && engagement.ContractSatisfied,
		engagement.ContractMode, string(runtimeMode), cfg.StrictMode, cfg.ForceSleep,
		engagement.Engagement, verification, events, now(),
	)
	if err != nil {
		logger.Error("engine: failed to build proof artifact", map[string]interface{}{"error": err.Error()})
	}

	reason := program.Reason
	if program.OK && !engagement.ContractSatisfied {
		reason = "asleep_detected"
	}

	return Result{
		OK: program.OK && engagement.ContractSatisfied, Reason: reason,
		ContractMode: engagement.ContractMode, RuntimeMode: string(runtimeMode),
		Engagement: engagement.Engagement, Trace: events, Verification: verification,
		Program: program, Artifact: artifact,
		ExitCode: exitCodeFor(program.OK, program.Reason, engagement.ContractSatisfied, cfg.ForceSleep),
	}
}

// hostSpawn adapts Entry's own configured spawn mechanism into a
// worker.HostSpawnFunc, so a worker-hosted run dispatches through exactly
// the same adapter or host capability the direct path would have used.
func (e *Entry) hostSpawn(ctx context.Context, req worker.RequestSpawn) (map[string]interface{}, error) {
	switch {
	case e.Adapter != nil:
		result, err := e.Adapter.Spawn(ctx, adapter.SpawnArgs{AgentName: req.AgentName, Prompt: req.Prompt, Input: req.Input})
		return result.Output, err
	case e.Capability != nil:
		return e.Capability(ctx, req.Prompt)
	default:
		return nil, core.NewFrameworkError("engine.Entry.hostSpawn", "engine", core.ErrWorkerError)
	}
}

func (e *Entry) forcedSleepResult(cfg *core.Config) Result {
	verification := Verification{}
	artifact, _ := buildProofArtifact(false, cfg.EffectiveContractMode(), "", cfg.StrictMode, true, asleep.Engagement{}, verification, nil, now())
	return Result{
		OK: false, Reason: "force_sleep", ContractMode: cfg.EffectiveContractMode(),
		Artifact: artifact, ExitCode: 5,
	}
}

// now is a thin seam so tests can stub it if ever needed; production
// always uses the wall clock.
func now() time.Time { return time.Now() }
