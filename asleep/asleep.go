// Package asleep classifies a finished run as engaged or "asleep": an
// agent that returned plausible text without actually spawning
// subagents, invoking tools, or producing independently verifiable
// work. The active contract mode decides which signals are mandatory.
package asleep

import (
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/trace"
)

// Engagement is the set of individually-checkable signals a contract
// draws on. HasPreflightOk, HasPlanCreated and HasQualityGatePass are
// true iff a trace event of the matching kind was ever appended;
// HasSpawnOrRequest is set by a spawn event, and HasProofVerified mirrors
// the trace validator's verdict rather than any single event.
type Engagement struct {
	HasPreflightOk     bool
	HasPlanCreated     bool
	HasProofVerified   bool
	HasSpawnOrRequest  bool
	HasQualityGatePass bool
}

// Result is the full engagement verdict for one run.
type Result struct {
	OK                bool
	ContractMode      string
	ContractSatisfied bool
	Engagement        Engagement
	TraceCount        int
	VerificationOk    bool
	TraceEvents       []string
}

// Evaluate classifies a finished run. runtimeMode and verificationOk
// come from the orchestrator and trace validator respectively; events is
// the full merged trace (preflight events included).
//
// Two readings of "engaged" are plausible here: one requires
// quality_gate_pass in strict/agentic mode, the other does not. This
// function implements the form without that requirement — agentic mode
// is satisfied by preflight_ok + plan_created + a spawn/request signal +
// a verified trace + a real runtime, and deliberately does not fold
// hasQualityGatePass into agentic contractSatisfied even though the flag
// is still computed and reported.
func Evaluate(cfg *core.Config, runtimeMode string, verificationOk bool, events []trace.Event) Result {
	engagement := Engagement{}
	kinds := make([]string, 0, len(events))

	for _, e := range events {
		kinds = append(kinds, e.Kind)
		switch e.Kind {
		case core.EventPreflightOK:
			engagement.HasPreflightOk = true
		case core.EventPlanCreated:
			engagement.HasPlanCreated = true
		case core.EventSpawn:
			engagement.HasSpawnOrRequest = true
		case core.EventQualityGatePass:
			engagement.HasQualityGatePass = true
		}
	}
	engagement.HasProofVerified = verificationOk

	contractMode := cfg.EffectiveContractMode()

	var contractSatisfied bool
	if contractMode == core.ContractModeAgentic {
		contractSatisfied = engagement.HasPreflightOk &&
			engagement.HasPlanCreated &&
			engagement.HasSpawnOrRequest &&
			verificationOk &&
			runtimeMode == core.RuntimeModeReal
	} else {
		contractSatisfied = len(events) > 0 && hasAnyKind(events,
			core.EventSpawn, core.EventMerge, core.EventReturn, core.EventQualityGatePass)
	}

	return Result{
		OK:                contractSatisfied,
		ContractMode:      contractMode,
		ContractSatisfied: contractSatisfied,
		Engagement:        engagement,
		TraceCount:        len(events),
		VerificationOk:    verificationOk,
		TraceEvents:       kinds,
	}
}

func hasAnyKind(events []trace.Event, kinds ...string) bool {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	for _, e := range events {
		if want[e.Kind] {
			return true
		}
	}
	return false
}
