// Package validator cross-checks a completed trace against its registry
// and supervisor secret: every event's signature must verify, every
// childRunId must resolve, and every return event's outputHash must
// match what the registry recorded.
package validator

import (
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/registry"
	"github.com/kestrel-run/recursion-engine/trace"
)

// Finding is one verification failure.
type Finding struct {
	EventID int    `json:"eventId"`
	Reason  string `json:"reason"`
}

// Result is the outcome of validating a full trace.
type Result struct {
	OK       bool      `json:"ok"`
	Findings []Finding `json:"findings"`
}

// Validate checks events against secret and reg, per §4.5:
//   - recompute and verify each event's signature;
//   - if childRunId is present, require the registry to know it;
//   - if kind == return, require the registry's stored outputHash to
//     equal the event's.
func Validate(secret []byte, reg *registry.Registry, events []trace.Event) Result {
	result := Result{OK: true}

	for _, e := range events {
		if ok, err := trace.VerifyEventSig(secret, e); err != nil || !ok {
			result.OK = false
			result.Findings = append(result.Findings, Finding{EventID: e.EventID, Reason: "bad_signature"})
			continue
		}

		if e.ChildRunID != "" && !reg.HasRun(e.ChildRunID) {
			result.OK = false
			result.Findings = append(result.Findings, Finding{EventID: e.EventID, Reason: "child_run_missing_in_registry"})
			continue
		}

		if e.Kind == core.EventReturn && e.ChildRunID != "" {
			run, ok := reg.GetRun(e.ChildRunID)
			if !ok || run.OutputHash != e.OutputHash {
				result.OK = false
				result.Findings = append(result.Findings, Finding{EventID: e.EventID, Reason: "output_hash_mismatch"})
			}
		}
	}

	return result
}
