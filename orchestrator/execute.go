package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/trace"
)

// buildPrompt renders the role-tagged prompt for one spawn, falling back
// to a plain task description when no PromptBuilder was configured (the
// in-process-capability-only path has no use for rendered text).
func (o *Orchestrator) buildPrompt(role adapter.Role, agentName string, depth int, task, nonce, runID string) (string, error) {
	if o.prompts == nil {
		return task, nil
	}
	return o.prompts.Build(adapter.TemplateData{
		Role: role, AgentName: agentName, Depth: depth, Task: task, Nonce: nonce, RunID: runID,
	})
}

// hasRealCapability reports whether a spawn can dispatch to a real
// adapter or host capability rather than falling back to simulation.
func (o *Orchestrator) hasRealCapability() bool {
	return o.spawnAdapter != nil || o.capability != nil
}

// execute dispatches one spawn attempt: a configured SpawnAdapter always
// wins (worker mode or LLM-backed), otherwise a bare host capability
// runs in-process, otherwise the run falls back to simulation. The
// strict-mode fatal path is handled by the caller before
// execute is ever invoked, since it must bypass the gate/retry loop
// entirely rather than exhaust attempts against a capability that will
// never appear.
func (o *Orchestrator) execute(ctx context.Context, agentName string, input map[string]interface{}, prompt string, isFrontier bool) (interface{}, error) {
	ctx, span := o.telemetry.StartSpan(ctx, "orchestrator.execute")
	defer span.End()
	span.SetAttribute("agent_name", agentName)
	span.SetAttribute("frontier", isFrontier)

	var adapterKind string
	switch {
	case o.spawnAdapter != nil:
		adapterKind = "spawn_adapter"
	case o.capability != nil:
		adapterKind = "host_capability"
	default:
		adapterKind = "simulated"
	}
	span.SetAttribute("adapter", adapterKind)

	switch {
	case o.spawnAdapter != nil:
		result, err := o.spawnAdapter.Spawn(ctx, adapter.SpawnArgs{AgentName: agentName, Prompt: prompt, Input: input})
		if err != nil {
			span.RecordError(err)
			o.telemetry.RecordMetric("engine.spawn.errors", 1, map[string]string{"agent": agentName, "adapter": adapterKind})
			return nil, err
		}
		o.setRuntimeMode(RuntimeModeReal)
		o.telemetry.RecordMetric("engine.spawn.executions", 1, map[string]string{"agent": agentName, "adapter": adapterKind})
		return result.Output, nil

	case o.capability != nil:
		result, err := adapter.NewInProcessAdapter(o.capability).Spawn(ctx, adapter.SpawnArgs{AgentName: agentName, Prompt: prompt, Input: input})
		if err != nil {
			span.RecordError(err)
			o.telemetry.RecordMetric("engine.spawn.errors", 1, map[string]string{"agent": agentName, "adapter": adapterKind})
			return nil, err
		}
		o.setRuntimeMode(RuntimeModeReal)
		o.telemetry.RecordMetric("engine.spawn.executions", 1, map[string]string{"agent": agentName, "adapter": adapterKind})
		return result.Output, nil

	default:
		o.setRuntimeMode(RuntimeModeSimulated)
		o.warnSimulatedOnce()
		o.telemetry.RecordMetric("engine.spawn.executions", 1, map[string]string{"agent": agentName, "adapter": adapterKind})
		return o.simulate(agentName, input, isFrontier), nil
	}
}

// setRuntimeMode records the strongest runtime mode observed: once any
// spawn dispatches for real the whole run is "real" even if an earlier
// spawn simulated, since runtimeMode is a run-level
// summary, not a per-spawn one — "real" always wins.
func (o *Orchestrator) setRuntimeMode(mode RuntimeMode) {
	if mode == RuntimeModeReal {
		o.runtimeMode = RuntimeModeReal
		return
	}
	if o.runtimeMode == RuntimeModeUnset {
		o.runtimeMode = mode
	}
}

func (o *Orchestrator) warnSimulatedOnce() {
	if o.simulationWarned {
		return
	}
	o.simulationWarned = true
	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventSimulationWarning, Note: "no spawn adapter or host capability configured",
	}); err != nil {
		o.logger.Warn("orchestrator: failed to append simulation_warning event", map[string]interface{}{"error": err.Error()})
	}
}

// simulate produces the fixed canned shape for agentName's role when no
// real adapter or capability is available, grounded on
// adapter.MockAIClient's per-role shapes so a simulated run and a mock-
// adapter run produce structurally identical output.
func (o *Orchestrator) simulate(agentName string, input map[string]interface{}, isFrontier bool) map[string]interface{} {
	switch {
	case isFrontier:
		nonce, _ := input["nonce"].(string)
		runID, _ := input["runId"].(string)
		return map[string]interface{}{
			"hashProof": frontierHashProof(nonce, runID),
			"timestamp": float64(time.Now().UnixMilli()),
		}
	case agentName == "depth1_orchestrator":
		return map[string]interface{}{
			"spawn_requests": []interface{}{
				map[string]interface{}{"child_name": "depth2_worker_a", "input": map[string]interface{}{}},
				map[string]interface{}{"child_name": "depth2_worker_b", "input": map[string]interface{}{}},
			},
		}
	default:
		return map[string]interface{}{
			"metric":      float64(1),
			"computation": fmt.Sprintf("simulated_%s", agentName),
			"spawn_request": map[string]interface{}{
				"child_name": "depth3_micro",
				"input":      map[string]interface{}{},
			},
		}
	}
}
