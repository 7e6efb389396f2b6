package orchestrator

import (
	"context"
	"fmt"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/trace"
)

// ProgramResult is the top-level outcome of Run: the fixed fan-out
// program, depth0 -> 1 depth1 orchestrator -> 2 depth2 workers -> 2
// depth3 frontier micro-agents, merged into one summary.
type ProgramResult struct {
	OK             bool
	Reason         string
	RootRunID      string
	WorkerRunIDs   []string
	FrontierRunIDs []string
	Merged         map[string]interface{}
}

// Run drives the fixed fan-out program end-to-end under supervision: it
// is the engine's one built-in "task" and the shape every SupervisedSpawn
// invariant (depth gate, nonce frontier proof, quality gate, signed
// trace) is exercised against.
func (o *Orchestrator) Run(ctx context.Context, task string) ProgramResult {
	orchestratorResult := o.SupervisedSpawn(ctx, SpawnRequest{
		ParentRunID:  "root",
		AgentName:    "depth1_orchestrator",
		Depth:        1,
		Input:        map[string]interface{}{"task": task},
		Task:         task,
		RequiredKeys: []string{"spawn_requests"},
	})
	if !orchestratorResult.OK {
		return ProgramResult{OK: false, Reason: orchestratorResult.Reason}
	}

	requests, ok := orchestratorResult.Output["spawn_requests"].([]interface{})
	if !ok || len(requests) == 0 {
		return ProgramResult{OK: false, Reason: "orchestrator_returned_no_spawn_requests", RootRunID: orchestratorResult.RunID}
	}

	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventPlanCreated, Depth: 1, AgentName: "depth1_orchestrator",
		ParentRunID: "root", ChildRunID: orchestratorResult.RunID,
	}); err != nil {
		return ProgramResult{OK: false, Reason: fmt.Sprintf("trace_append_failed: %v", err)}
	}

	var workerRunIDs []string
	var frontierRunIDs []string
	workerMetrics := make([]interface{}, 0, len(requests))

	for i, raw := range requests {
		reqMap, _ := raw.(map[string]interface{})
		childName, _ := reqMap["child_name"].(string)
		if childName == "" {
			childName = fmt.Sprintf("depth2_worker_%d", i)
		}

		workerResult := o.SupervisedSpawn(ctx, SpawnRequest{
			ParentRunID:     orchestratorResult.RunID,
			AgentName:       childName,
			Depth:           2,
			Input:           map[string]interface{}{"task": task},
			Task:            task,
			RequiredKeys:    []string{"metric", "computation", "spawn_request"},
			MinNumericCount: 1,
		})
		if !workerResult.OK {
			return ProgramResult{OK: false, Reason: workerResult.Reason, RootRunID: orchestratorResult.RunID, WorkerRunIDs: workerRunIDs}
		}
		workerRunIDs = append(workerRunIDs, workerResult.RunID)
		workerMetrics = append(workerMetrics, workerResult.Output["metric"])

		frontierResult := o.SupervisedSpawn(ctx, SpawnRequest{
			ParentRunID:     workerResult.RunID,
			AgentName:       "depth3_micro",
			Depth:           3,
			Input:           map[string]interface{}{"task": task},
			Task:            task,
			RequiredKeys:    []string{"hashProof", "timestamp"},
			MinNumericCount: 1,
		})
		if !frontierResult.OK {
			return ProgramResult{OK: false, Reason: frontierResult.Reason, RootRunID: orchestratorResult.RunID, WorkerRunIDs: workerRunIDs, FrontierRunIDs: frontierRunIDs}
		}
		frontierRunIDs = append(frontierRunIDs, frontierResult.RunID)
	}

	merged := map[string]interface{}{
		"workerCount":   float64(len(workerRunIDs)),
		"frontierCount": float64(len(frontierRunIDs)),
		"metrics":       workerMetrics,
	}

	if _, err := o.trace.AddEvent(trace.UnsignedEvent{
		Kind: core.EventMerge, Depth: 1, AgentName: "depth1_orchestrator",
		ParentRunID: "root", ChildRunID: orchestratorResult.RunID, Note: "merged_depth2_depth3_results",
	}); err != nil {
		return ProgramResult{OK: false, Reason: fmt.Sprintf("trace_append_failed: %v", err)}
	}

	return ProgramResult{
		OK: true, RootRunID: orchestratorResult.RunID,
		WorkerRunIDs: workerRunIDs, FrontierRunIDs: frontierRunIDs, Merged: merged,
	}
}
