package core

import "time"

// Trace event kinds.
const (
	EventSpawn             = "spawn"
	EventReturn            = "return"
	EventMerge             = "merge"
	EventLimit             = "limit"
	EventPreflightOK       = "preflight_ok"
	EventPlanCreated       = "plan_created"
	EventQualityGatePass   = "quality_gate_pass"
	EventQualityGateFail   = "quality_gate_fail"
	EventToolMissingStrict = "tool_missing_strict"
	EventSimulationWarning = "simulation_warning"
)

// Run statuses.
const (
	RunStatusSpawned  = "spawned"
	RunStatusReturned = "returned"
)

// Contract modes.
const (
	ContractModeAgentic = "agentic"
	ContractModeLocal   = "local"
)

// Runtime modes.
const (
	RuntimeModeReal      = "real"
	RuntimeModeSimulated = "simulated"
)

// FrontierDepth documents the depth at which a spawn is "the frontier"
// (maxDepth - 1) under the default MaxDepth=4 configuration. The
// orchestrator always computes this from the active configuration rather
// than relying on the constant; it exists for documentation and for tests
// that exercise the default configuration.
const FrontierDepth = 3

// DefaultRedisHeartbeat is the base unit of the optional Redis execution
// store's key TTL: each write sets a run record to expire six heartbeats
// later. Nothing refreshes keys on this cadence between writes.
const DefaultRedisHeartbeat = 10 * time.Second

