package engine

import (
	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/trace"
)

// PreflightResult is the outcome of probing host capabilities before the
// orchestrator ever runs.
type PreflightResult struct {
	OK     bool
	Reason string
}

// runPreflight probes for a real spawn mechanism (an adapter or a host
// capability), decides whether strict mode can be honored, and appends
// preflight_ok/tool_missing_strict events directly onto tr — the same
// trace the orchestrator appends to afterward, so the merged export is
// correctly ordered without a separate splice step.
//
// The enumerated trace kinds list "tool_missing_strict" as their
// own kind distinct from "limit", unused anywhere else in this engine's
// event vocabulary (execute-dispatch's strict-mode fatal records kind
// "limit" with note "tool_missing_strict" instead, to preserve the literal
// wording) — so preflight's failure event is the one place that kind is
// actually emitted, tagged with note "preflight_fail".
func runPreflight(cfg *core.Config, hasAdapter bool, hasCapability adapter.HostCapabilityFunc, tr *trace.Trace) PreflightResult {
	capabilityPresent := hasAdapter || hasCapability != nil

	if cfg.StrictMode && !capabilityPresent {
		if _, err := tr.AddEvent(trace.UnsignedEvent{
			Kind: core.EventToolMissingStrict, Note: "preflight_fail",
		}); err != nil {
			return PreflightResult{OK: false, Reason: "tool_missing_strict"}
		}
		return PreflightResult{OK: false, Reason: "tool_missing_strict"}
	}

	if _, err := tr.AddEvent(trace.UnsignedEvent{Kind: core.EventPreflightOK}); err != nil {
		return PreflightResult{OK: false, Reason: "preflight_append_failed"}
	}
	return PreflightResult{OK: true}
}
