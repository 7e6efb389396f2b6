package asleep

import (
	"testing"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/trace"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_LocalContractSatisfiedBySpawnEvent(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ContractMode = core.ContractModeLocal

	events := []trace.Event{{Kind: core.EventSpawn}, {Kind: core.EventReturn}}
	result := Evaluate(cfg, core.RuntimeModeSimulated, true, events)

	assert.True(t, result.ContractSatisfied)
	assert.True(t, result.OK)
	assert.Equal(t, core.ContractModeLocal, result.ContractMode)
}

func TestEvaluate_LocalContractUnsatisfiedWithEmptyTrace(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ContractMode = core.ContractModeLocal

	result := Evaluate(cfg, core.RuntimeModeSimulated, true, nil)
	assert.False(t, result.ContractSatisfied)
}

func TestEvaluate_AgenticRequiresAllFiveSignals(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.ContractMode = core.ContractModeAgentic

	events := []trace.Event{
		{Kind: core.EventPreflightOK},
		{Kind: core.EventPlanCreated},
		{Kind: core.EventSpawn},
	}

	satisfied := Evaluate(cfg, core.RuntimeModeReal, true, events)
	assert.True(t, satisfied.ContractSatisfied)

	missingVerification := Evaluate(cfg, core.RuntimeModeReal, false, events)
	assert.False(t, missingVerification.ContractSatisfied)

	simulatedRuntime := Evaluate(cfg, core.RuntimeModeSimulated, true, events)
	assert.False(t, simulatedRuntime.ContractSatisfied)

	noPlan := Evaluate(cfg, core.RuntimeModeReal, true, []trace.Event{{Kind: core.EventPreflightOK}, {Kind: core.EventSpawn}})
	assert.False(t, noPlan.ContractSatisfied)
}

func TestEvaluate_StrictModeDerivesAgenticContractMode(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.StrictMode = true

	result := Evaluate(cfg, core.RuntimeModeReal, true, nil)
	assert.Equal(t, core.ContractModeAgentic, result.ContractMode)
}

func TestEvaluate_ReportsEngagementFlagsIndependently(t *testing.T) {
	cfg := core.DefaultConfig()
	events := []trace.Event{{Kind: core.EventQualityGatePass}}

	result := Evaluate(cfg, core.RuntimeModeSimulated, false, events)
	assert.True(t, result.Engagement.HasQualityGatePass)
	assert.False(t, result.Engagement.HasProofVerified)
	assert.Equal(t, []string{core.EventQualityGatePass}, result.TraceEvents)
}
