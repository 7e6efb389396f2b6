package engine

import (
	"context"
	"testing"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.MaxDepth = 4
	cfg.MaxSpawns = 10
	return cfg
}

func TestEntry_Run_NominalSimulatedRun(t *testing.T) {
	e := NewEntry()
	result := e.Run(context.Background(), "build a feature", testConfig())

	require.Equal(t, 0, result.ExitCode, "reason: %s", result.Reason)
	assert.True(t, result.OK)
	assert.Equal(t, core.ContractModeLocal, result.ContractMode)
	assert.Equal(t, "simulated", result.RuntimeMode)
	assert.True(t, result.Verification.Depth3ProofVerified)
	assert.Len(t, result.Verification.Depth3Proofs, 2)

	var spawnCount, returnCount, mergeCount int
	for _, e := range result.Trace {
		switch e.Kind {
		case core.EventSpawn:
			spawnCount++
		case core.EventReturn:
			returnCount++
		case core.EventMerge:
			mergeCount++
		}
	}
	assert.Equal(t, 5, spawnCount)
	assert.Equal(t, 5, returnCount)
	assert.Equal(t, 1, mergeCount)
}

func TestEntry_Run_StrictWithoutCapabilityExitsTwo(t *testing.T) {
	cfg := testConfig()
	cfg.StrictMode = true
	e := NewEntry()

	result := e.Run(context.Background(), "build a feature", cfg)
	assert.Equal(t, 2, result.ExitCode)
	assert.Equal(t, "tool_missing_strict", result.Reason)
	assert.False(t, result.OK)
}

func TestEntry_Run_ForceSleepAlwaysExitsFive(t *testing.T) {
	cfg := testConfig()
	cfg.ForceSleep = true
	e := NewEntry()

	result := e.Run(context.Background(), "build a feature", cfg)
	assert.Equal(t, 5, result.ExitCode)
	assert.False(t, result.OK)
	assert.True(t, result.Artifact.ForceSleep)
}

func TestEntry_Run_BudgetEnforcement(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSpawns = 2
	e := NewEntry()

	result := e.Run(context.Background(), "build a feature", cfg)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, []string{"spawn_limit", "depth_limit"}, result.Reason)
}

func TestEntry_Run_ValidationPassesForAnUntamperedRun(t *testing.T) {
	e := NewEntry()
	result := e.Run(context.Background(), "build a feature", testConfig())
	require.True(t, result.OK)
	assert.True(t, result.Verification.OK)
	assert.Empty(t, result.Verification.Findings)
}
